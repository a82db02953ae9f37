package failsafe_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skyward-labs/flightloop/internal/axis"
	"github.com/skyward-labs/flightloop/internal/failsafe"
	"github.com/skyward-labs/flightloop/internal/sensor"
)

var _ = Describe("Manager", func() {
	var m *failsafe.Manager

	BeforeEach(func() {
		m = failsafe.New()
	})

	It("starts every axis nominal", func() {
		for ax := axis.Name(0); ax < axis.NumAxes; ax++ {
			Expect(m.Health(ax)).To(Equal(axis.Nominal))
		}
	})

	Describe("sensor outcomes", func() {
		It("degrades on failover and recovers when the primary returns", func() {
			m.ObserveSensor(axis.Altitude, sensor.Failover)
			Expect(m.Health(axis.Altitude)).To(Equal(axis.Degraded))

			m.ObserveSensor(axis.Altitude, sensor.PrimaryGood)
			Expect(m.Health(axis.Altitude)).To(Equal(axis.Nominal))
		})

		It("stays degraded across repeated failovers", func() {
			m.ObserveSensor(axis.Heading, sensor.Failover)
			m.ObserveSensor(axis.Heading, sensor.Failover)
			Expect(m.Health(axis.Heading)).To(Equal(axis.Degraded))
			Expect(m.Transitions()).To(HaveLen(1))
		})

		It("fails from nominal when both sources drop", func() {
			m.ObserveSensor(axis.Speed, sensor.AllInvalid)
			Expect(m.Health(axis.Speed)).To(Equal(axis.Failed))
		})

		It("fails from degraded when both sources drop", func() {
			m.ObserveSensor(axis.Speed, sensor.Failover)
			m.ObserveSensor(axis.Speed, sensor.AllInvalid)
			Expect(m.Health(axis.Speed)).To(Equal(axis.Failed))
		})

		It("does not affect the other axes", func() {
			m.ObserveSensor(axis.Altitude, sensor.AllInvalid)
			Expect(m.Health(axis.Heading)).To(Equal(axis.Nominal))
			Expect(m.Health(axis.Speed)).To(Equal(axis.Nominal))
		})
	})

	Describe("computation faults", func() {
		It("escalates straight to failed", func() {
			m.ReportComputationFault(axis.Heading)
			Expect(m.Health(axis.Heading)).To(Equal(axis.Failed))
		})
	})

	Describe("end of cycle", func() {
		It("promotes failed axes to manual override", func() {
			m.ObserveSensor(axis.Altitude, sensor.AllInvalid)
			m.EndCycle()
			Expect(m.Health(axis.Altitude)).To(Equal(axis.ManualOverride))
		})

		It("leaves healthy axes alone", func() {
			m.ObserveSensor(axis.Altitude, sensor.Failover)
			m.EndCycle()
			Expect(m.Health(axis.Altitude)).To(Equal(axis.Degraded))
		})
	})

	Describe("a failed axis", func() {
		BeforeEach(func() {
			m.ObserveSensor(axis.Altitude, sensor.AllInvalid)
			m.EndCycle()
		})

		It("is never silently retried on good sensor data", func() {
			m.ObserveSensor(axis.Altitude, sensor.PrimaryGood)
			Expect(m.Health(axis.Altitude)).To(Equal(axis.ManualOverride))
		})

		It("recovers only through an explicit reset", func() {
			m.Reset(axis.Altitude)
			Expect(m.Health(axis.Altitude)).To(Equal(axis.Nominal))
		})
	})

	Describe("transition log", func() {
		It("records cycle, axis and both endpoints", func() {
			m.ObserveSensor(axis.Speed, sensor.Failover)
			m.EndCycle()
			m.ObserveSensor(axis.Speed, sensor.AllInvalid)
			m.EndCycle()

			tr := m.Transitions()
			Expect(tr).To(HaveLen(3))
			Expect(tr[0]).To(Equal(failsafe.Transition{Cycle: 0, Axis: axis.Speed, From: axis.Nominal, To: axis.Degraded}))
			Expect(tr[1]).To(Equal(failsafe.Transition{Cycle: 1, Axis: axis.Speed, From: axis.Degraded, To: axis.Failed}))
			Expect(tr[2]).To(Equal(failsafe.Transition{Cycle: 1, Axis: axis.Speed, From: axis.Failed, To: axis.ManualOverride}))
		})

		It("is bounded", func() {
			for i := 0; i < 1000; i++ {
				m.ObserveSensor(axis.Heading, sensor.Failover)
				m.ObserveSensor(axis.Heading, sensor.PrimaryGood)
			}
			Expect(len(m.Transitions())).To(BeNumerically("<=", 256))
		})
	})
})

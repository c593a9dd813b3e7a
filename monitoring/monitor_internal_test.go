package monitoring

import (
	"encoding/json"
	"net/http/httptest"
	"reflect"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/socforge/socforge/crg"
	"github.com/socforge/socforge/sim"
)

type sampleStruct struct {
	field1 int
	field2 string
	field3 *sampleStruct
	field4 []sampleStruct
}

type sampleComponent struct {
	*sim.ComponentBase

	buffer sim.Buffer
}

func (c *sampleComponent) Handle(_ sim.Event) error {
	return nil
}

func (c *sampleComponent) NotifyRecv(_ sim.Port) {
	// Do nothing.
}

func (c *sampleComponent) NotifyPortFree(_ sim.Port) {
	// Do nothing.
}

func newSampleComponent() *sampleComponent {
	c := &sampleComponent{
		ComponentBase: sim.NewComponentBase("Comp"),
		buffer:        sim.NewBuffer("Comp.Buf", 10),
	}

	c.AddPort("Port1", sim.NewPort(c, 2, 2, "Comp.Port1"))

	return c
}

type stubSource struct {
	locked bool
}

func (s stubSource) Locked() bool {
	return s.locked
}

type stubSelfTest struct {
	done      bool
	timedOut  bool
	issued    uint64
	completed uint64
}

func (s stubSelfTest) Done() bool {
	return s.done
}

func (s stubSelfTest) TimedOut() bool {
	return s.timedOut
}

func (s stubSelfTest) Progress() (uint64, uint64) {
	return s.issued, s.completed
}

type stubCheckingSelfTest struct {
	stubSelfTest

	errors uint64
}

func (s stubCheckingSelfTest) ErrorCount() uint64 {
	return s.errors
}

var _ = Describe("Monitor", func() {
	var m *Monitor

	BeforeEach(func() {
		m = NewMonitor()
	})

	It("should register components and their buffers", func() {
		c := newSampleComponent()
		m.RegisterComponent(c)

		Expect(m.components).To(HaveLen(1))
		Expect(m.buffers).To(HaveLen(3))
	})

	It("should report domain states", func() {
		seq := crg.MakeBuilder().
			AddDomain(crg.Domain{
				Name:   "sys4x",
				Freq:   400 * sim.MHz,
				Policy: crg.ResetLess,
			}).
			AddDomain(crg.Domain{
				Name:   "eth_rx",
				Freq:   25 * sim.MHz,
				Policy: crg.Async,
				Source: stubSource{locked: false},
			}).
			Build("CRG")
		m.RegisterSequencer(seq)

		w := httptest.NewRecorder()
		m.listDomains(w, httptest.NewRequest("GET", "/api/domains", nil))

		var statuses []domainStatus
		Expect(json.Unmarshal(w.Body.Bytes(), &statuses)).To(Succeed())
		Expect(statuses).To(Equal([]domainStatus{
			{Domain: "sys4x", Released: true},
			{Domain: "eth_rx", Released: false},
		}))
	})

	It("should report self-test progress", func() {
		m.RegisterSelfTest("Generator", stubSelfTest{
			done: true, issued: 64, completed: 64,
		})
		m.RegisterSelfTest("Checker", stubCheckingSelfTest{
			stubSelfTest: stubSelfTest{issued: 8, completed: 5},
			errors:       2,
		})

		w := httptest.NewRecorder()
		m.listSelfTests(w, httptest.NewRequest("GET", "/api/selftest", nil))

		var statuses []selfTestStatus
		Expect(json.Unmarshal(w.Body.Bytes(), &statuses)).To(Succeed())
		Expect(statuses).To(HaveLen(2))

		Expect(statuses[0].Name).To(Equal("Generator"))
		Expect(statuses[0].Done).To(BeTrue())
		Expect(statuses[0].Errors).To(BeNil())

		Expect(statuses[1].Name).To(Equal("Checker"))
		Expect(statuses[1].Completed).To(Equal(uint64(5)))
		Expect(statuses[1].Errors).ToNot(BeNil())
		Expect(*statuses[1].Errors).To(Equal(uint64(2)))
	})

	It("should sort buffers by level and clamp the page", func() {
		small := sim.NewBuffer("Small", 4)
		small.Push(1)

		large := sim.NewBuffer("Large", 4)
		large.Push(1)
		large.Push(2)
		large.Push(3)

		m.buffers = []sim.Buffer{small, large}

		sorted := m.sortAndSelectBuffers("level", 0, 0)
		Expect(sorted).To(HaveLen(2))
		Expect(sorted[0].Name()).To(Equal("Large"))

		sorted = m.sortAndSelectBuffers("level", 1, 0)
		Expect(sorted).To(HaveLen(1))
		Expect(sorted[0].Name()).To(Equal("Large"))

		sorted = m.sortAndSelectBuffers("level", 10, 5)
		Expect(sorted).To(BeEmpty())
	})

	It("should walk int fields", func() {
		s := &sampleStruct{
			field1: 1,
		}

		elem, err := m.walkFields(s, "field1")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Int))
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should walk string fields", func() {
		s := &sampleStruct{
			field2: "abc",
		}

		elem, err := m.walkFields(s, "field2")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.String))
		Expect(elem.String()).To(Equal("abc"))
	})

	It("should walk into nested structs", func() {
		s := &sampleStruct{
			field3: &sampleStruct{
				field1: 1,
			},
		}

		elem, err := m.walkFields(s, "field3.field1")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Int))
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should walk into slices by index", func() {
		s := &sampleStruct{
			field4: []sampleStruct{{
				field4: []sampleStruct{
					{field1: 1},
				},
			}, {}},
		}

		elem, err := m.walkFields(s, "field4.0.field4.0.field1")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Int))
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should refuse a non-numeric slice index", func() {
		s := &sampleStruct{
			field4: []sampleStruct{{}},
		}

		_, err := m.walkFields(s, "field4.x")

		Expect(err).ToNot(BeNil())
	})
})

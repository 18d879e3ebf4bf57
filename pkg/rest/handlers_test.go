package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/llm-d-incubation/qsizer/pkg/analyzer"
	"github.com/llm-d-incubation/qsizer/pkg/config"
	"github.com/llm-d-incubation/qsizer/pkg/core"
	"github.com/llm-d-incubation/qsizer/pkg/solver"
)

var _ = Describe("StateLessServer", func() {
	var server *StateLessServer

	do := func(method, path string, body any) *httptest.ResponseRecorder {
		var reader io.Reader
		switch b := body.(type) {
		case nil:
		case string:
			reader = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(b)
			Expect(err).NotTo(HaveOccurred())
			reader = bytes.NewBuffer(data)
		}
		req := httptest.NewRequest(method, path, reader)
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)
		return rec
	}

	BeforeEach(func() {
		server = NewStateLessServer()
	})

	Context("evaluate", func() {
		It("returns the performance of a stable queue", func() {
			rec := do(http.MethodPost, "/evaluate", config.QueueSpec{ArrivalRate: 1, ServiceRate: 2, Notation: "mm1"})
			Expect(rec.Code).To(Equal(http.StatusOK))

			var result config.QueueResult
			Expect(json.Unmarshal(rec.Body.Bytes(), &result)).To(Succeed())
			Expect(result.WaitTime).To(BeNumerically("~", 1.0, 1e-12))
			Expect(result.Utilization).To(BeNumerically("~", 0.5, 1e-12))
			Expect(result.Servers).To(Equal(1))
		})

		It("rejects an unstable queue", func() {
			rec := do(http.MethodPost, "/evaluate", config.QueueSpec{ArrivalRate: 3, ServiceRate: 2, Notation: "mm1"})
			Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))
			Expect(rec.Body.String()).To(ContainSubstring("unstable_system"))
		})

		It("requires a variance for general service times", func() {
			rec := do(http.MethodPost, "/evaluate", config.QueueSpec{ArrivalRate: 1, ServiceRate: 2, Notation: "mg1"})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Body.String()).To(ContainSubstring("missing_variance"))
		})

		It("rejects malformed input", func() {
			rec := do(http.MethodPost, "/evaluate", "{not json")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Context("sweep", func() {
		It("skips unstable rates and reports the critical rate", func() {
			spec := config.SweepSpec{
				Queue:        config.QueueSpec{ServiceRate: 2, Notation: "mm1"},
				Start:        0.5,
				Stop:         3,
				Step:         0.5,
				CriticalWait: 1,
			}
			rec := do(http.MethodPost, "/sweep", spec)
			Expect(rec.Code).To(Equal(http.StatusOK))

			var result config.SweepResult
			Expect(json.Unmarshal(rec.Body.Bytes(), &result)).To(Succeed())
			Expect(result.Rows).To(HaveLen(3))
			Expect(result.CriticalRate).NotTo(BeNil())
			Expect(*result.CriticalRate).To(BeNumerically("~", 1.0, 1e-12))
		})
	})

	Context("optimize", func() {
		It("sizes both tiers", func() {
			rec := do(http.MethodPost, "/optimize", exampleData())
			Expect(rec.Code).To(Equal(http.StatusOK))

			var result config.OptimizerResult
			Expect(json.Unmarshal(rec.Body.Bytes(), &result)).To(Succeed())
			Expect(result.EdgeCount).To(Equal(19))
			Expect(result.CloudCount).To(Equal(20))
			Expect(result.Cost).To(BeNumerically("~", 3.9, 1e-9))
			Expect(result.Strategy).To(Equal("discrete"))
		})

		It("reports an infeasible problem", func() {
			data := exampleData()
			data.WaitCrit = 50 / config.SecondsPerHour
			data.Search.MaxDevices = 100
			rec := do(http.MethodPost, "/optimize", data)
			Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))
			Expect(rec.Body.String()).To(ContainSubstring("infeasible_problem"))
		})

		It("rejects an unknown strategy", func() {
			data := exampleData()
			data.Search.Strategy = "simulated-annealing"
			rec := do(http.MethodPost, "/optimize", data)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Context("network", func() {
		nodes := []config.NodeSpec{
			{Name: "sensor", Kind: "source", Rate: 10},
			{Name: "channel", Kind: "channel", Rate: 20},
			{Name: "db", Kind: "sink"},
		}

		It("propagates a chain", func() {
			spec := config.NetworkSpec{
				Nodes: nodes,
				Links: []config.LinkSpec{{From: "sensor", To: "channel"}, {From: "channel", To: "db"}},
			}
			rec := do(http.MethodPost, "/network", spec)
			Expect(rec.Code).To(Equal(http.StatusOK))

			var report config.NetworkReport
			Expect(json.Unmarshal(rec.Body.Bytes(), &report)).To(Succeed())
			Expect(report.Nodes).To(HaveLen(3))
			Expect(report.Paths).To(HaveLen(1))
			Expect(report.Paths[0].Nodes).To(Equal([]string{"sensor", "channel", "db"}))
			Expect(report.Error).To(BeEmpty())
		})

		It("returns partial results when a node is unstable", func() {
			unstable := append([]config.NodeSpec{}, nodes...)
			unstable[1].Rate = 5
			spec := config.NetworkSpec{
				Nodes: unstable,
				Links: []config.LinkSpec{{From: "sensor", To: "channel"}, {From: "channel", To: "db"}},
			}
			rec := do(http.MethodPost, "/network", spec)
			Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))

			var report config.NetworkReport
			Expect(json.Unmarshal(rec.Body.Bytes(), &report)).To(Succeed())
			Expect(report.Nodes).To(HaveLen(1))
			Expect(report.Error).To(ContainSubstring("channel"))
			Expect(report.ErrorType).To(Equal("unstable_system"))
		})

		It("rejects a cycle", func() {
			spec := config.NetworkSpec{
				Nodes: nodes,
				Links: []config.LinkSpec{
					{From: "sensor", To: "channel"},
					{From: "channel", To: "db"},
					{From: "db", To: "channel"},
				},
			}
			rec := do(http.MethodPost, "/network", spec)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Body.String()).To(ContainSubstring("cyclic_topology"))
		})
	})

	Context("operations", func() {
		It("reports health", func() {
			rec := do(http.MethodGet, "/healthz", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get(RequestIDHeader)).To(HaveLen(36))
		})

		It("exposes request metrics", func() {
			do(http.MethodPost, "/evaluate", config.QueueSpec{ArrivalRate: 1, ServiceRate: 2, Notation: "mm1"})
			do(http.MethodPost, "/evaluate", config.QueueSpec{ArrivalRate: 3, ServiceRate: 2, Notation: "mm1"})

			rec := do(http.MethodGet, "/metrics", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`qsizer_requests_total{operation="evaluate"} 2`))
			Expect(rec.Body.String()).To(ContainSubstring(`error_type="unstable_system"`))
		})
	})
})

var _ = DescribeTable("classify",
	func(err error, status int, errorType string) {
		s, e := classify(err)
		Expect(s).To(Equal(status))
		Expect(e).To(Equal(errorType))
	},
	Entry("invalid", fmt.Errorf("wrapped: %w", analyzer.ErrInvalidConfiguration), http.StatusBadRequest, "invalid_configuration"),
	Entry("variance", analyzer.ErrMissingVariance, http.StatusBadRequest, "missing_variance"),
	Entry("cycle", core.ErrCyclicTopology, http.StatusBadRequest, "cyclic_topology"),
	Entry("unstable", analyzer.ErrUnstableSystem, http.StatusUnprocessableEntity, "unstable_system"),
	Entry("unreachable", analyzer.ErrTargetUnreachable, http.StatusUnprocessableEntity, "target_unreachable"),
	Entry("infeasible", &solver.InfeasibleProblemError{}, http.StatusUnprocessableEntity, "infeasible_problem"),
	Entry("other", errors.New("boom"), http.StatusInternalServerError, "internal"),
)

func exampleData() *config.OptimizerData {
	return &config.OptimizerData{
		Lambda:      1000,
		RevenuePer:  0.01,
		EdgeShare:   0.3,
		EdgeCount:   1,
		EdgeTime:    200 / config.SecondsPerHour,
		EdgeDistr:   "Determined",
		BatteryPerf: 200,
		EdgeCost:    0.1,
		CloudCount:  1,
		CloudTime:   100 / config.SecondsPerHour,
		CloudDistr:  "Determined",
		CloudCost:   0.1,
		Pricing:     "Dedicated",
		WaitCrit:    240 / config.SecondsPerHour,
		BatteryCrit: 8,
	}
}

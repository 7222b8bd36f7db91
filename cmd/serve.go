package cmd

import (
	"bufio"
	"encoding/json"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	sim "github.com/greendc-sim/greendc-sim/sim"
)

var (
	serveAddr       string
	serveMetricsAddr string
)

// Operational metrics exported while serving the gateway.
var (
	metricSteps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "greendc_steps_total",
		Help: "Environment steps served",
	})
	metricEpisodes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "greendc_episodes_total",
		Help: "Episodes started via reset",
	})
	metricInvalidActions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "greendc_invalid_actions_total",
		Help: "Invalid agent actions",
	})
	metricPowerW = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "greendc_current_power_w",
		Help: "Instantaneous datacenter power draw",
	})
	metricEnergyWh = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "greendc_cumulative_energy_wh",
		Help: "Cumulative episode energy",
	})
	metricQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "greendc_waiting_cloudlets",
		Help: "Broker waiting-queue depth",
	})
)

// gatewayRequest is one newline-delimited JSON request from the controller.
type gatewayRequest struct {
	Op   string `json:"op"`
	Seed int64  `json:"seed"`

	// Simple action variant: target VM id, -1 for no-op.
	TargetVM *int `json:"target_vm,omitempty"`
	// Structured variant: [action_type, target_vm_id, target_host_id, vm_type_index].
	Action []int `json:"action,omitempty"`

	// Configure payload, as YAML for key parity with config files.
	ConfigYAML string `json:"config_yaml,omitempty"`
}

type gatewayResponse struct {
	OK          bool             `json:"ok"`
	Error       string           `json:"error,omitempty"`
	Observation *sim.Observation `json:"observation,omitempty"`
	Reward      *float64         `json:"reward,omitempty"`
	Terminated  *bool            `json:"terminated,omitempty"`
	Truncated   *bool            `json:"truncated,omitempty"`
	Info        *sim.StepInfo    `json:"info,omitempty"`
	Render      string           `json:"render,omitempty"`
}

// serveCmd exposes the gateway over a newline-delimited JSON socket: one
// request per line, one response per line. The simulation itself stays
// single-threaded; connections are served one at a time.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the gateway over a JSON-lines TCP socket",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(configPath)
		if err != nil {
			return err
		}

		gw := sim.NewGateway()
		defer gw.Close()
		if err := gw.Configure(cfg); err != nil {
			return err
		}

		if serveMetricsAddr != "" {
			go func() {
				http.Handle("/metrics", promhttp.Handler())
				logrus.Infof("metrics on http://%s/metrics", serveMetricsAddr)
				if err := http.ListenAndServe(serveMetricsAddr, nil); err != nil {
					logrus.Warnf("metrics server: %v", err)
				}
			}()
		}

		listener, err := net.Listen("tcp", serveAddr)
		if err != nil {
			return err
		}
		defer listener.Close()
		logrus.Infof("gateway listening on %s", serveAddr)

		for {
			conn, err := listener.Accept()
			if err != nil {
				return err
			}
			logrus.Infof("controller connected from %s", conn.RemoteAddr())
			serveConn(conn, gw)
		}
	},
}

func serveConn(conn net.Conn, gw *sim.Gateway) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		var req gatewayRequest
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			writeResponse(encoder, gatewayResponse{Error: "malformed request: " + err.Error()})
			continue
		}
		resp := handleRequest(gw, req)
		writeResponse(encoder, resp)
		if req.Op == "close" {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		logrus.Warnf("controller connection: %v", err)
	}
}

func handleRequest(gw *sim.Gateway, req gatewayRequest) gatewayResponse {
	switch req.Op {
	case "configure":
		cfg := sim.DefaultConfig()
		if err := yaml.Unmarshal([]byte(req.ConfigYAML), &cfg); err != nil {
			return gatewayResponse{Error: "parse config: " + err.Error()}
		}
		if err := gw.Configure(cfg); err != nil {
			return gatewayResponse{Error: err.Error()}
		}
		return gatewayResponse{OK: true}

	case "reset":
		obs, info, err := gw.Reset(req.Seed)
		if err != nil {
			return gatewayResponse{Error: err.Error()}
		}
		metricEpisodes.Inc()
		return gatewayResponse{OK: true, Observation: &obs, Info: &info}

	case "step":
		action, err := decodeAction(req)
		if err != nil {
			return gatewayResponse{Error: err.Error()}
		}
		obs, reward, terminated, truncated, info, err := gw.Step(action)
		if err != nil {
			return gatewayResponse{Error: err.Error()}
		}
		metricSteps.Inc()
		if info.InvalidActionTaken {
			metricInvalidActions.Inc()
		}
		metricPowerW.Set(info.CurrentPowerW)
		metricEnergyWh.Set(info.CumulativeEnergyWh)
		metricQueueDepth.Set(float64(obs.WaitingCloudlets))
		return gatewayResponse{
			OK:          true,
			Observation: &obs,
			Reward:      &reward,
			Terminated:  &terminated,
			Truncated:   &truncated,
			Info:        &info,
		}

	case "render":
		return gatewayResponse{OK: true, Render: gw.Render()}

	case "render_json":
		out, err := gw.RenderJSON()
		if err != nil {
			return gatewayResponse{Error: err.Error()}
		}
		return gatewayResponse{OK: true, Render: out}

	case "close":
		gw.Close()
		return gatewayResponse{OK: true}

	default:
		return gatewayResponse{Error: "unknown op " + req.Op}
	}
}

func decodeAction(req gatewayRequest) (sim.Action, error) {
	if len(req.Action) == 4 {
		return sim.StructuredAction(req.Action[0], req.Action[1], req.Action[2], req.Action[3]), nil
	}
	if req.TargetVM != nil {
		return sim.SimpleAction(*req.TargetVM), nil
	}
	return sim.NoOpAction(), nil
}

func writeResponse(encoder *json.Encoder, resp gatewayResponse) {
	if err := encoder.Encode(resp); err != nil {
		logrus.Warnf("write response: %v", err)
	}
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:5555", "Gateway listen address")
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", "", "Prometheus metrics listen address (empty disables)")
	rootCmd.AddCommand(serveCmd)
}

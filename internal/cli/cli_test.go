package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-eyereport/internal/application"
	"github.com/ahrav/go-eyereport/internal/domain"
	"github.com/ahrav/go-eyereport/internal/ports"
	"github.com/ahrav/go-eyereport/internal/testutils"
)

type harness struct {
	stub   *testutils.StubInferenceClient
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv(application.EnvDescriptionModel, "")
	t.Setenv(application.EnvReasoningModel, "")
	return &harness{stub: testutils.NewStubInferenceClient()}
}

func (h *harness) run(t *testing.T, args ...string) error {
	t.Helper()
	root := NewRootCommand(
		WithOutput(&h.stdout, &h.stderr),
		WithInferenceFactory(func(application.Config, ports.MetricsCollector) (ports.InferenceClient, error) {
			return h.stub, nil
		}),
	)
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func writeImages(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(paths[i], testutils.OnePixelPNG, 0o600))
	}
	return paths
}

func TestGenerate_Text(t *testing.T) {
	h := newHarness(t)
	imgs := writeImages(t, "od1.png", "od2.png", "oe1.png")

	err := h.run(t, "generate",
		"--right", imgs[0]+","+imgs[1],
		"--left", imgs[2],
		"--exam-type", "retinografia",
	)
	require.NoError(t, err)

	out := h.stdout.String()
	assert.Contains(t, out, "(retinografia)")
	assert.Contains(t, out, "== Right Eye (OD) ==")
	assert.Contains(t, out, "== Left Eye (OS) ==")
	assert.Contains(t, out, "Images: 2\n")
	assert.Equal(t, 2, strings.Count(out, "Diagnosis: Normal"))
	assert.Contains(t, out, "Cost over 5 calls:")
	assert.Contains(t, out, "0.015")
	assert.NotContains(t, out, "degraded")
	assert.NotContains(t, out, "estimated")
	assert.Equal(t, 5, h.stub.TotalCalls())
}

func TestGenerate_JSON(t *testing.T) {
	h := newHarness(t)
	imgs := writeImages(t, "od.png", "oe.png")

	require.NoError(t, h.run(t, "generate", "--right", imgs[0], "--left", imgs[1], "--json"))

	var out struct {
		RunID       string            `json:"run_id"`
		ExamType    string            `json:"exam_type"`
		Degraded    bool              `json:"degraded"`
		CostSummary map[string]string `json:"cost_summary"`
		Cost        struct {
			TotalCost float64 `json:"total_cost"`
			Calls     int     `json:"calls"`
		} `json:"cost"`
		Right struct {
			Report struct {
				Report struct {
					Diagnosis string `json:"diagnosis"`
				} `json:"report"`
			} `json:"report"`
		} `json:"right"`
	}
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &out))

	assert.Len(t, out.RunID, 36)
	assert.Equal(t, "oct_macula", out.ExamType, "configured default exam type")
	assert.False(t, out.Degraded)
	assert.Equal(t, "0.012", out.CostSummary["total_cost (USD)"])
	assert.InDelta(t, 0.012, out.Cost.TotalCost, 1e-9)
	assert.Equal(t, 4, out.Cost.Calls)
	assert.Equal(t, "normal", out.Right.Report.Report.Diagnosis)
}

func TestGenerate_MissingEye(t *testing.T) {
	h := newHarness(t)
	imgs := writeImages(t, "od.png")

	err := h.run(t, "generate", "--right", imgs[0])

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissingImages)
	assert.Zero(t, h.stub.TotalCalls())
}

func TestGenerate_InputErrors(t *testing.T) {
	imgs := writeImages(t, "od.png", "oe.png")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "image not found",
			args:    []string{"--right", imgs[0], "--left", "/nonexistent/oe.png"},
			wantErr: `left eye image "/nonexistent/oe.png" not found`,
		},
		{
			name:    "prompt file not found",
			args:    []string{"--right", imgs[0], "--left", imgs[1], "--synthesis-prompt-file", "/nonexistent.md"},
			wantErr: "failed to read prompt file",
		},
		{
			name:    "bad model spec",
			args:    []string{"--right", imgs[0], "--left", imgs[1], "--reasoning-model", "Open AI"},
			wantErr: "invalid model spec",
		},
		{
			name:    "unknown exam type",
			args:    []string{"--right", imgs[0], "--left", imgs[1], "-e", "angiografia"},
			wantErr: "layout not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			err := h.run(t, append([]string{"generate"}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Zero(t, h.stub.TotalCalls())
		})
	}
}

func TestGenerate_PromptFilesAndMetrics(t *testing.T) {
	h := newHarness(t)
	imgs := writeImages(t, "od.png", "oe.png")
	dir := t.TempDir()
	promptPath := filepath.Join(dir, "od.md")
	require.NoError(t, os.WriteFile(promptPath, []byte("Descreva o OD."), 0o600))
	metricsPath := filepath.Join(dir, "metrics.prom")

	require.NoError(t, h.run(t, "generate",
		"--right", imgs[0], "--left", imgs[1],
		"--right-prompt-file", promptPath,
		"--description-model", "google/gemini-2.5-flash",
		"--metrics-file", metricsPath,
	))

	prompts := map[string]bool{}
	for _, req := range h.stub.DescribeRequests() {
		prompts[req.Prompt] = true
		assert.Equal(t, "google/gemini-2.5-flash", req.Model)
	}
	assert.True(t, prompts["Descreva o OD."])

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `eyereport_runs_total{exam_type="oct_macula",status="success"} 1`)
	assert.Contains(t, string(data), "eyereport_stage_duration_seconds")
}

func TestGenerate_DegradedOutput(t *testing.T) {
	h := newHarness(t)
	h.stub.SynthesizeFunc = func(context.Context, ports.SynthesisRequest) (ports.Completion, error) {
		return ports.Completion{Text: "laudo sem json", Usage: testutils.StubUsage}, nil
	}
	imgs := writeImages(t, "od.png", "oe.png")

	require.NoError(t, h.run(t, "generate", "--right", imgs[0], "--left", imgs[1]))

	out := h.stdout.String()
	assert.Contains(t, out, "Report could not be parsed: malformed report")
	assert.Contains(t, out, "  laudo sem json")
	assert.Contains(t, out, "run is degraded")
}

func TestGenerate_EstimatedCost(t *testing.T) {
	h := newHarness(t)
	h.stub.SynthesizeFunc = func(context.Context, ports.SynthesisRequest) (ports.Completion, error) {
		usage := testutils.StubUsage
		usage.Estimated = true
		return ports.Completion{Text: testutils.StubReport, Usage: usage}, nil
	}
	imgs := writeImages(t, "od.png", "oe.png")

	require.NoError(t, h.run(t, "generate", "--right", imgs[0], "--left", imgs[1]))
	assert.Contains(t, h.stdout.String(), "note: 2 of 4 calls reported no token usage")

	h.stdout.Reset()
	require.NoError(t, h.run(t, "generate", "--right", imgs[0], "--left", imgs[1], "--json"))
	var out struct {
		Cost struct {
			Estimated      bool `json:"estimated"`
			EstimatedCalls int  `json:"estimated_calls"`
		} `json:"cost"`
	}
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &out))
	assert.True(t, out.Cost.Estimated)
	assert.Equal(t, 2, out.Cost.EstimatedCalls)
}

func TestLayouts(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "layouts"))
	assert.Equal(t, "  campimetria\n* oct_macula\n  retinografia\n", h.stdout.String())

	h = newHarness(t)
	require.NoError(t, h.run(t, "layouts", "show", "oct_macula"))
	assert.NotEmpty(t, strings.TrimSpace(h.stdout.String()))

	h = newHarness(t)
	err := h.run(t, "layouts", "show", "angiografia")
	assert.ErrorIs(t, err, ports.ErrLayoutNotFound)
}

func TestLayouts_FromConfiguredFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "layouts.yaml"), []byte(`
include_defaults: false
layouts:
  angiografia: "ANGIOGRAFIA\nOlho: {eye}"
`), 0o600))
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("layouts_file: layouts.yaml\ndefault_exam_type: angiografia\n"), 0o600))

	h := newHarness(t)
	require.NoError(t, h.run(t, "--config", cfgPath, "layouts"))
	assert.Equal(t, "* angiografia\n", h.stdout.String())
}

func TestRoot_Flags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "bad log format", args: []string{"--log-format", "xml", "layouts"}, wantErr: "invalid log format"},
		{name: "bad log level", args: []string{"--log-level", "loud", "layouts"}, wantErr: "invalid log level"},
		{name: "missing config", args: []string{"--config", "/nonexistent.yaml", "layouts"}, wantErr: "failed to load configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			err := h.run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRoot_JSONLogs(t *testing.T) {
	h := newHarness(t)
	imgs := writeImages(t, "od.png", "oe.png")

	require.NoError(t, h.run(t, "--log-format", "json", "generate", "--right", imgs[0], "--left", imgs[1], "--user", "dr.silva"))

	assert.Contains(t, h.stderr.String(), `"msg":"run finished"`)
	assert.Contains(t, h.stderr.String(), `"user":"dr.silva"`)
}

func TestNewInferenceClient(t *testing.T) {
	cfg := application.DefaultConfig()
	client, err := newInferenceClient(cfg, nil)
	require.NoError(t, err, "clients are created lazily, no API key needed")
	assert.NotNil(t, client)

	cfg.Models.Reasoning = "mistral/large"
	_, err = newInferenceClient(cfg, nil)
	assert.ErrorContains(t, err, `unknown provider "mistral"`)

	cfg = application.DefaultConfig()
	cfg.Models.Description = "openai/gpt-3.5-turbo"
	_, err = newInferenceClient(cfg, nil)
	assert.ErrorContains(t, err, "not supported")
}

func TestDiagnosisLabel(t *testing.T) {
	assert.Equal(t, "Normal", diagnosisLabel(domain.DiagnosisNormal))
	assert.Equal(t, "Non Available", diagnosisLabel(domain.DiagnosisNonAvailable))
	assert.Equal(t, "suspeita de glaucoma", diagnosisLabel("suspeita de glaucoma"))
}

func TestShippedConfig(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "--config", filepath.Join("..", "..", "configs", "eyereport.yaml"), "layouts"))
	assert.Equal(t, "  angiografia\n  campimetria\n* oct_macula\n  retinografia\n", h.stdout.String())
}

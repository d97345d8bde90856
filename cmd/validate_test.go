//go:build !integration

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farelens/deals-cli/internal/config"
)

func setupValidateCmd(t *testing.T, lines []string) string {
	t.Helper()

	dir := t.TempDir()
	input := filepath.Join(dir, "deals.jsonl")
	var data string
	for _, l := range lines {
		data += l + "\n"
	}
	require.NoError(t, os.WriteFile(input, []byte(data), 0o644))

	prevCfg, prevOut := cfg, validateOut
	cfg = &config.Config{
		Validate: config.ValidateConfig{
			MinPricePct:        90,
			MinDurationPct:     80,
			MinDestinationsPct: 60,
		},
	}
	validateOut = filepath.Join(dir, "qa")
	t.Cleanup(func() {
		cfg = prevCfg
		validateOut = prevOut
	})

	return input
}

func coverageLine(i int, priced bool) string {
	price := `"price":999,`
	if !priced {
		price = ""
	}
	return fmt.Sprintf(`{"title":"Deal %d","url":"https://x.test/%d",%s"nights":5,"destinations":["Bali"]}`, i, i, price)
}

func TestValidateCmd_CoverageBelowThresholdReturnsError(t *testing.T) {
	// 17 of 20 priced = 85%, under the 90% minimum.
	var lines []string
	for i := 0; i < 17; i++ {
		lines = append(lines, coverageLine(i, true))
	}
	for i := 17; i < 20; i++ {
		lines = append(lines, coverageLine(i, false))
	}
	input := setupValidateCmd(t, lines)

	err := validateCmd.RunE(validateCmd, []string{input})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coverage below thresholds")

	// The QA artifacts exist even on FAIL.
	_, err = os.Stat(filepath.Join(validateOut, "qa_summary.json"))
	assert.NoError(t, err)
}

func TestValidateCmd_Pass(t *testing.T) {
	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, coverageLine(i, true))
	}
	input := setupValidateCmd(t, lines)

	err := validateCmd.RunE(validateCmd, []string{input})
	assert.NoError(t, err)
}

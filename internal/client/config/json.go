package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/auditkeeper/internal/flagx"
	"github.com/dmitrijs2005/auditkeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields distinguish an absent key from an explicit zero.
type JsonConfig struct {
	ServerURL            *string         `json:"server_url"`
	HealthAddr           *string         `json:"health_addr"`
	ProbeMode            *string         `json:"probe_mode"`
	OnlineCheckInterval  *timex.Duration `json:"online_check_interval"`
	ReconcileQuietPeriod *timex.Duration `json:"reconcile_quiet_period"`
	RequestTimeout       *timex.Duration `json:"request_timeout"`
	DatabasePath         *string         `json:"database_path"`
	AssistantURL         *string         `json:"assistant_url"`
	ActionDueDays        *int            `json:"action_due_days"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config. Without either flag it does nothing. Read or unmarshal
// errors panic; callers recover if desired.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.ServerURL, jc.ServerURL)
	setString(&cfg.HealthAddr, jc.HealthAddr)
	setString(&cfg.ProbeMode, jc.ProbeMode)
	setDuration(&cfg.OnlineCheckInterval, jc.OnlineCheckInterval)
	setDuration(&cfg.ReconcileQuietPeriod, jc.ReconcileQuietPeriod)
	setDuration(&cfg.RequestTimeout, jc.RequestTimeout)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.AssistantURL, jc.AssistantURL)
	if jc.ActionDueDays != nil {
		cfg.ActionDueDays = *jc.ActionDueDays
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = time.Duration(v.Duration)
	}
}

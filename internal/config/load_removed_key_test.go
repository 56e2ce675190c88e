package config

import (
	"strings"
	"testing"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

func TestUnmarshalExact_RejectsUnknownServerSection(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")

	configYAML := `
locale:
  default: en
server:
  port: 8080
`

	if err := v.ReadConfig(strings.NewReader(configYAML)); err != nil {
		t.Fatalf("failed to read config yaml: %v", err)
	}

	var cfg Config
	err := v.UnmarshalExact(
		&cfg,
		viper.DecodeHook(
			mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				stringToStringSliceHookFunc(","),
			),
		),
	)
	if err == nil {
		t.Fatal("expected unmarshal error for unknown server section")
	}
	if !strings.Contains(err.Error(), "server") {
		t.Fatalf("expected error to mention server, got: %v", err)
	}
}

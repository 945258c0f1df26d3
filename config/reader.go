package config

import (
	"bytes"
	"encoding/json"
	"io"
	"reflect"
	"time"

	"github.com/a8m/envsubst"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"go.viam.com/swerve/logging"
)

// Read reads a config from the given file, expanding ${VAR} references from the environment.
func Read(filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	cfg, err := FromReader(bytes.NewReader(buf), logger)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", filePath)
	}
	cfg.ConfigFilePath = filePath
	return cfg, nil
}

// FromReader decodes, defaults and validates a JSON config. Unknown keys are logged and ignored.
func FromReader(r io.Reader, logger logging.Logger) (*Config, error) {
	var attributes map[string]interface{}
	if err := json.NewDecoder(r).Decode(&attributes); err != nil {
		return nil, errors.Wrap(err, "failed to decode config from json")
	}

	var cfg Config
	md, err := decode(attributes, &cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode config attributes")
	}
	if len(md.Unused) > 0 {
		logger.Warnw("ignoring unknown config keys", "keys", md.Unused)
	}
	if err := cfg.Ensure(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decode(attributes map[string]interface{}, out interface{}) (mapstructure.Metadata, error) {
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:  "json",
		Result:   out,
		Metadata: &md,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			millisecondsToDurationHookFunc(),
		),
	})
	if err != nil {
		return md, err
	}
	return md, decoder.Decode(attributes)
}

// millisecondsToDurationHookFunc reads bare JSON numbers as milliseconds.
func millisecondsToDurationHookFunc() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) || from.Kind() != reflect.Float64 {
			return data, nil
		}
		ms, ok := data.(float64)
		if !ok {
			return data, nil
		}
		return time.Duration(ms * float64(time.Millisecond)), nil
	}
}

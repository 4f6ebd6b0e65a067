// SPDX-License-Identifier: AGPL-3.0-or-later
// relaybus - a distributed peer-to-peer service bus
// Copyright (C) 2023-2026 relaybus contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// The source code is available at <https://github.com/relaybus/relaybus>

package config_test

import (
	"testing"
	"time"

	"github.com/USA-RedDragon/configulator"
	"github.com/relaybus/relaybus/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeValidConfig(t *testing.T) config.Config {
	t.Helper()
	defConfig, err := configulator.New[config.Config]().Default()
	require.NoError(t, err)
	return defConfig
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := makeValidConfig(t)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidateInvalidLogLevel(t *testing.T) {
	cfg := makeValidConfig(t)
	cfg.LogLevel = "trace"
	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidLogLevel)
}

func TestRedisValidateDisabledSkipsChecks(t *testing.T) {
	r := config.Redis{Enabled: false}
	assert.NoError(t, r.Validate())
}

func TestRedisValidateRequiresHostAndPort(t *testing.T) {
	tests := []struct {
		name    string
		redis   config.Redis
		wantErr error
	}{
		{"missing host", config.Redis{Enabled: true, Port: 6379}, config.ErrInvalidRedisHost},
		{"zero port", config.Redis{Enabled: true, Host: "localhost"}, config.ErrInvalidRedisPort},
		{"port too large", config.Redis{Enabled: true, Host: "localhost", Port: 70000}, config.ErrInvalidRedisPort},
		{"valid", config.Redis{Enabled: true, Host: "localhost", Port: 6379}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.redis.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestDatabaseValidateDriver(t *testing.T) {
	tests := []struct {
		name    string
		db      config.Database
		wantErr error
	}{
		{"invalid driver", config.Database{Driver: "oracle", Database: "x"}, config.ErrInvalidDatabaseDriver},
		{"sqlite needs no host", config.Database{Driver: config.DatabaseDriverSQLite, Database: "relaybus.sqlite"}, nil},
		{"postgres needs host", config.Database{Driver: config.DatabaseDriverPostgres, Database: "relaybus"}, config.ErrInvalidDatabaseHost},
		{"postgres needs port", config.Database{Driver: config.DatabaseDriverPostgres, Host: "db", Database: "relaybus"}, config.ErrInvalidDatabasePort},
		{"missing database name", config.Database{Driver: config.DatabaseDriverSQLite}, config.ErrInvalidDatabaseName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.db.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestHTTPValidate(t *testing.T) {
	tests := []struct {
		name    string
		http    config.HTTP
		wantErr error
	}{
		{"missing bind", config.HTTP{Port: 8080}, config.ErrInvalidHTTPHost},
		{"bad port", config.HTTP{Bind: "0.0.0.0", Port: 0}, config.ErrInvalidHTTPPort},
		{"valid", config.HTTP{Bind: "0.0.0.0", Port: 8080}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.http.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestMetricsValidateDisabledSkipsChecks(t *testing.T) {
	m := config.Metrics{Enabled: false}
	assert.NoError(t, m.Validate())
}

func TestMetricsValidate(t *testing.T) {
	tests := []struct {
		name    string
		metrics config.Metrics
		wantErr error
	}{
		{"missing bind", config.Metrics{Enabled: true, Port: 9100}, config.ErrInvalidMetricsBindAddress},
		{"bad port", config.Metrics{Enabled: true, Bind: "0.0.0.0", Port: -1}, config.ErrInvalidMetricsPort},
		{"valid", config.Metrics{Enabled: true, Bind: "0.0.0.0", Port: 9100}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.metrics.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestPProfValidateDisabledSkipsChecks(t *testing.T) {
	p := config.PProf{Enabled: false}
	assert.NoError(t, p.Validate())
}

func TestDirectoryValidate(t *testing.T) {
	tests := []struct {
		name      string
		directory config.Directory
		wantErr   error
	}{
		{"zero timeout", config.Directory{LivenessSweepInterval: time.Second}, config.ErrInvalidLivenessTimeout},
		{"zero sweep interval", config.Directory{LivenessTimeout: time.Second}, config.ErrInvalidLivenessSweepInterval},
		{"valid", config.Directory{LivenessTimeout: 30 * time.Second, LivenessSweepInterval: 10 * time.Second}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.directory.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestDispatchValidate(t *testing.T) {
	tests := []struct {
		name     string
		dispatch config.Dispatch
		wantErr  error
	}{
		{"zero batch size", config.Dispatch{DefaultQueueName: "default"}, config.ErrInvalidDispatchBatchSize},
		{"missing queue name", config.Dispatch{DefaultBatchSize: 64}, config.ErrInvalidDispatchQueueName},
		{"valid", config.Dispatch{DefaultBatchSize: 64, DefaultQueueName: "default"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.dispatch.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestTransportValidate(t *testing.T) {
	tests := []struct {
		name      string
		transport config.Transport
		wantErr   error
	}{
		{"zero timeout", config.Transport{ReceiveHighWaterMark: 1}, config.ErrInvalidTransportReceiveTimeout},
		{"zero high water mark", config.Transport{ReceiveTimeout: time.Second}, config.ErrInvalidTransportReceiveHighWaterMark},
		{"valid", config.Transport{ReceiveTimeout: 5 * time.Second, ReceiveHighWaterMark: 1000}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.transport.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

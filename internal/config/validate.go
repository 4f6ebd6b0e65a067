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

package config

import "errors"

var (
	// ErrInvalidLogLevel indicates that the provided log level is not valid.
	ErrInvalidLogLevel = errors.New("invalid log level provided")
	// ErrInvalidRedisHost indicates that the provided Redis host is not valid.
	ErrInvalidRedisHost = errors.New("invalid Redis host provided")
	// ErrInvalidRedisPort indicates that the provided Redis port is not valid.
	ErrInvalidRedisPort = errors.New("invalid Redis port provided")
	// ErrInvalidDatabaseDriver indicates that the provided database driver is not valid.
	ErrInvalidDatabaseDriver = errors.New("invalid database driver provided")
	// ErrInvalidDatabaseHost indicates that the provided database host is not valid.
	ErrInvalidDatabaseHost = errors.New("invalid database host provided")
	// ErrInvalidDatabasePort indicates that the provided database port is not valid.
	ErrInvalidDatabasePort = errors.New("invalid database port provided")
	// ErrInvalidDatabaseName indicates that the provided database name is not valid.
	ErrInvalidDatabaseName = errors.New("invalid database name provided")
	// ErrInvalidHTTPHost indicates that the provided HTTP host is not valid.
	ErrInvalidHTTPHost = errors.New("invalid HTTP host provided")
	// ErrInvalidHTTPPort indicates that the provided HTTP port is not valid.
	ErrInvalidHTTPPort = errors.New("invalid HTTP port provided")
	// ErrInvalidMetricsBindAddress indicates that the provided metrics server bind address is not valid.
	ErrInvalidMetricsBindAddress = errors.New("invalid metrics server bind address provided")
	// ErrInvalidMetricsPort indicates that the provided metrics server port is not valid.
	ErrInvalidMetricsPort = errors.New("invalid metrics server port provided")
	// ErrInvalidPProfBindAddress indicates that the provided PProf server bind address is not valid.
	ErrInvalidPProfBindAddress = errors.New("invalid PProf server bind address provided")
	// ErrInvalidPProfPort indicates that the provided PProf server port is not valid.
	ErrInvalidPProfPort = errors.New("invalid PProf server port provided")
	// ErrInvalidLivenessTimeout indicates that the directory's liveness timeout is not positive.
	ErrInvalidLivenessTimeout = errors.New("directory liveness timeout must be positive")
	// ErrInvalidLivenessSweepInterval indicates that the directory's liveness sweep interval is not positive.
	ErrInvalidLivenessSweepInterval = errors.New("directory liveness sweep interval must be positive")
	// ErrInvalidDispatchBatchSize indicates that a dispatch queue's batch size is less than one.
	ErrInvalidDispatchBatchSize = errors.New("dispatch batch size must be at least 1")
	// ErrInvalidDispatchQueueName indicates that a dispatch queue's name is empty.
	ErrInvalidDispatchQueueName = errors.New("dispatch queue name must not be empty")
	// ErrInvalidTransportReceiveTimeout indicates that the transport's receive timeout is not positive.
	ErrInvalidTransportReceiveTimeout = errors.New("transport receive timeout must be positive")
	// ErrInvalidTransportReceiveHighWaterMark indicates that the transport's high water mark is less than one.
	ErrInvalidTransportReceiveHighWaterMark = errors.New("transport receive high water mark must be at least 1")
)

// Validate validates the Redis configuration.
func (r Redis) Validate() error {
	if !r.Enabled {
		return nil
	}

	if r.Host == "" {
		return ErrInvalidRedisHost
	}
	if r.Port <= 0 || r.Port > 65535 {
		return ErrInvalidRedisPort
	}

	return nil
}

// Validate validates the Database configuration.
func (d Database) Validate() error {
	if !d.Driver.Valid() {
		return ErrInvalidDatabaseDriver
	}

	if d.Driver != DatabaseDriverSQLite && d.Host == "" {
		return ErrInvalidDatabaseHost
	}

	if d.Driver != DatabaseDriverSQLite && (d.Port <= 0 || d.Port > 65535) {
		return ErrInvalidDatabasePort
	}

	if d.Database == "" {
		return ErrInvalidDatabaseName
	}

	return nil
}

// Validate validates the HTTP configuration.
func (h HTTP) Validate() error {
	if h.Bind == "" {
		return ErrInvalidHTTPHost
	}

	if h.Port <= 0 || h.Port > 65535 {
		return ErrInvalidHTTPPort
	}

	return nil
}

// Validate validates the Metrics configuration.
func (m Metrics) Validate() error {
	if !m.Enabled {
		return nil
	}

	if m.Bind == "" {
		return ErrInvalidMetricsBindAddress
	}
	if m.Port <= 0 || m.Port > 65535 {
		return ErrInvalidMetricsPort
	}

	return nil
}

// Validate validates the PProf configuration.
func (p PProf) Validate() error {
	if !p.Enabled {
		return nil
	}

	if p.Bind == "" {
		return ErrInvalidPProfBindAddress
	}
	if p.Port <= 0 || p.Port > 65535 {
		return ErrInvalidPProfPort
	}

	return nil
}

// Validate validates the Directory configuration.
func (d Directory) Validate() error {
	if d.LivenessTimeout <= 0 {
		return ErrInvalidLivenessTimeout
	}
	if d.LivenessSweepInterval <= 0 {
		return ErrInvalidLivenessSweepInterval
	}
	return nil
}

// Validate validates the Dispatch configuration.
func (d Dispatch) Validate() error {
	if d.DefaultBatchSize < 1 {
		return ErrInvalidDispatchBatchSize
	}
	if d.DefaultQueueName == "" {
		return ErrInvalidDispatchQueueName
	}
	return nil
}

// Validate validates the Transport configuration.
func (t Transport) Validate() error {
	if t.ReceiveTimeout <= 0 {
		return ErrInvalidTransportReceiveTimeout
	}
	if t.ReceiveHighWaterMark < 1 {
		return ErrInvalidTransportReceiveHighWaterMark
	}
	return nil
}

// Validate validates the entire configuration tree, in section order.
func (c Config) Validate() error {
	if !c.LogLevel.Valid() {
		return ErrInvalidLogLevel
	}

	if err := c.Redis.Validate(); err != nil {
		return err
	}

	if err := c.Database.Validate(); err != nil {
		return err
	}

	if err := c.HTTP.Validate(); err != nil {
		return err
	}

	if err := c.Metrics.Validate(); err != nil {
		return err
	}

	if err := c.PProf.Validate(); err != nil {
		return err
	}

	if err := c.Directory.Validate(); err != nil {
		return err
	}

	if err := c.Dispatch.Validate(); err != nil {
		return err
	}

	if err := c.Transport.Validate(); err != nil {
		return err
	}

	return nil
}

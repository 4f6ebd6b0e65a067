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

// Package config defines the typed configuration tree loaded by
// github.com/USA-RedDragon/configulator at process start, and the
// Validate() methods each section uses to reject a bad configuration
// before the directory, dispatcher, or transport are brought up.
package config

import "time"

// Config is the root configuration for a relaybusd process.
type Config struct {
	LogLevel LogLevel `name:"log-level" default:"info" usage:"one of debug, info, warn, error"`

	Redis     Redis     `name:"redis"`
	Database  Database  `name:"database"`
	HTTP      HTTP      `name:"http"`
	Metrics   Metrics   `name:"metrics"`
	PProf     PProf     `name:"pprof"`
	Directory Directory `name:"directory"`
	Dispatch  Dispatch  `name:"dispatch"`
	Transport Transport `name:"transport"`
}

// Redis configures the optional Redis-backed PubSub and KV backends.
// When Enabled is false, relaybusd falls back to the in-memory
// implementations, suitable for single-instance deployments and tests.
type Redis struct {
	Enabled  bool   `name:"enabled" default:"false"`
	Host     string `name:"host" default:"localhost"`
	Port     int    `name:"port" default:"6379"`
	Password string `name:"password"`
}

// Database configures the gorm-backed persistent peer repository.
type Database struct {
	Driver   DatabaseDriver `name:"driver" default:"sqlite"`
	Host     string         `name:"host"`
	Port     int            `name:"port"`
	Username string         `name:"username"`
	Password string         `name:"password"`
	Database string         `name:"database" default:"relaybus.sqlite"`
}

// HTTP configures the admin/inspection API server.
type HTTP struct {
	Bind           string   `name:"bind" default:"0.0.0.0"`
	Port           int      `name:"port" default:"8080"`
	CORSHosts      []string `name:"cors-hosts"`
	TrustedProxies []string `name:"trusted-proxies"`
}

// Metrics configures the Prometheus metrics server and, when
// OTLPEndpoint is set, OpenTelemetry tracing for the whole process.
type Metrics struct {
	Enabled      bool   `name:"enabled" default:"true"`
	Bind         string `name:"bind" default:"0.0.0.0"`
	Port         int    `name:"port" default:"9100"`
	OTLPEndpoint string `name:"otlp-endpoint"`
}

// PProf configures the optional debug pprof server.
type PProf struct {
	Enabled bool   `name:"enabled" default:"false"`
	Bind    string `name:"bind" default:"127.0.0.1"`
	Port    int    `name:"port" default:"6060"`
}

// Directory configures the Peer Directory server.
type Directory struct {
	// DisableDynamicSubscriptionsForDirectoryOutgoingMessages, when true,
	// causes GetPeersHandlingMessage to consult only static subscriptions.
	DisableDynamicSubscriptionsForDirectoryOutgoingMessages bool `name:"disable-dynamic-subscriptions-for-directory-outgoing-messages" default:"false"`
	// LivenessTimeout is how long a peer may go without a ping before the
	// liveness sweep marks it PeerNotResponding.
	LivenessTimeout time.Duration `name:"liveness-timeout" default:"30s"`
	// LivenessSweepInterval is how often the liveness sweep job runs.
	LivenessSweepInterval time.Duration `name:"liveness-sweep-interval" default:"10s"`
}

// Dispatch configures the default batching behavior of dispatch queues.
// A handler may name its own queue; DefaultQueueName is used when it
// names none, and every queue the dispatcher creates uses
// DefaultBatchSize.
type Dispatch struct {
	DefaultBatchSize int    `name:"default-batch-size" default:"64"`
	DefaultQueueName string `name:"default-queue-name" default:"default"`
}

// Transport configures the wire transport adapter.
type Transport struct {
	ReceiveTimeout       time.Duration `name:"receive-timeout" default:"5s"`
	ReceiveHighWaterMark int           `name:"receive-high-water-mark" default:"1000"`
}

// Copyright 2025 Acnodal Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// ethinfo prints hardware and IP address information for named
// network interfaces, queried from the kernel over netlink.
//
//	ethinfo eth0
//	ethinfo -json eth0 wlan0
//	ethinfo -interval 10s -metrics-port 9100 eth0
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"etherinfo.io/internal/logging"
	v1 "etherinfo.io/pkg/apis/v1"
	"etherinfo.io/pkg/etherinfo"
)

// interfaceReport is the JSON shape of one interface, for -json.
type interfaceReport struct {
	Device     string         `json:"device"`
	MACAddress string         `json:"mac_address,omitempty"`
	IPv4       []v1.IPAddress `json:"ipv4_addresses"`
	IPv6       []v1.IPAddress `json:"ipv6_addresses"`
}

func main() {
	logger := logging.Init()

	defaultInterval := time.Duration(0)
	if raw := os.Getenv("ETHINFO_INTERVAL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			defaultInterval = parsed
		}
	}

	var (
		jsonOut     = flag.Bool("json", false, "print interface info as JSON instead of text")
		interval    = flag.Duration("interval", defaultInterval, "re-query and re-print every interval; 0 prints once and exits")
		metricsPort = flag.Int("metrics-port", 0, "serve Prometheus metrics on this port while looping (needs -interval)")
	)
	flag.Parse()

	devices := flag.Args()
	if len(devices) == 0 {
		logger.Log("op", "startup", "error", "no interfaces named on the command line", "msg", "missing configuration")
		os.Exit(1)
	}

	stopCh := make(chan struct{})
	go func() {
		c1 := make(chan os.Signal, 1)
		signal.Notify(c1, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
		<-c1
		logger.Log("op", "shutdown", "msg", "starting shutdown")
		signal.Stop(c1)
		close(stopCh)
	}()

	if *metricsPort != 0 && *interval > 0 {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(fmt.Sprintf(":%d", *metricsPort), nil); err != nil {
				logger.Log("op", "metrics", "error", err)
			}
		}()
	}

	records := make([]*etherinfo.EtherInfo, 0, len(devices))
	for _, device := range devices {
		records = append(records, etherinfo.New(device, etherinfo.WithLogger(logger)))
	}
	defer func() {
		for _, record := range records {
			record.Close()
		}
	}()

	if err := printAll(records, *jsonOut); err != nil {
		logger.Log("op", "query", "error", err)
		os.Exit(1)
	}

	if *interval <= 0 {
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			logger.Log("op", "shutdown", "msg", "done")
			return
		case <-ticker.C:
			if err := printAll(records, *jsonOut); err != nil {
				logger.Log("op", "query", "error", err)
			}
		}
	}
}

func printAll(records []*etherinfo.EtherInfo, jsonOut bool) error {
	for _, record := range records {
		if jsonOut {
			if err := printJSON(record); err != nil {
				return err
			}
			continue
		}

		summary, err := record.Summary()
		if err != nil {
			return err
		}
		fmt.Print(summary)
	}
	return nil
}

func printJSON(record *etherinfo.EtherInfo) error {
	report := interfaceReport{}

	var err error
	if report.Device, err = record.Device(); err != nil {
		return err
	}
	if report.MACAddress, err = record.MACAddress(); err != nil {
		return err
	}
	if report.IPv4, err = record.GetIPv4Addresses(); err != nil {
		return err
	}
	if report.IPv6, err = record.GetIPv6Addresses(); err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package commandline contains convenience UI tools for running executions from the command line:
// a flag to configure the runtime, a progress bar and tables with the results.
package commandline

import (
	"fmt"
	"io"
	"slices"

	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/backends"
	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
)

// Counted is implemented by devices that count their executions, like the simulated device.
type Counted interface {
	NumExecutions() int64
	NumFailures() int64
}

// DeviceRow is one line of the devices table.
type DeviceRow struct {
	Name       string
	Type       backends.DeviceType
	Executions int64
	Failures   int64

	// Counted is false for devices that don't report their number of executions.
	Counted bool
}

// DeviceRows returns the rows of the devices table for the given devices, in order, skipping repeated ones.
func DeviceRows(devices ...backends.Device) []DeviceRow {
	var seen []backends.Device
	rows := make([]DeviceRow, 0, len(devices))
	for _, device := range devices {
		if device == nil || slices.Contains(seen, device) {
			continue
		}
		seen = append(seen, device)
		row := DeviceRow{Name: device.Name(), Type: device.Type()}
		if counted, ok := device.(Counted); ok {
			row.Counted = true
			row.Executions = counted.NumExecutions()
			row.Failures = counted.NumFailures()
		}
		rows = append(rows, row)
	}
	return rows
}

// DevicesTable renders the rows in a table.
func DevicesTable(rows []DeviceRow) string {
	table := newTable().Headers("Device", "Type", "Executions", "Failures")
	for _, row := range rows {
		executions, failures := "-", "-"
		if row.Counted {
			executions = humanize.Comma(row.Executions)
			failures = humanize.Comma(row.Failures)
		}
		table.Row(row.Name, row.Type.String(), executions, failures)
	}
	return table.String()
}

// ReportDevices prints the devices table to w.
func ReportDevices(w io.Writer, devices ...backends.Device) error {
	_, err := fmt.Fprintln(w, DevicesTable(DeviceRows(devices...)))
	return err
}

// KeyValueTable renders pairs of name and value in a two-column table. pairs must have an even length.
func KeyValueTable(pairs ...string) string {
	table := newTable()
	for ii := 0; ii+1 < len(pairs); ii += 2 {
		table.Row(pairs[ii], pairs[ii+1])
	}
	return table.String()
}

func newTable() *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(tableBorderColor))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return normalStyle
			}
			return rightAlignedStyle
		})
}

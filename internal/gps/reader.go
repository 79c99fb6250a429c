// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package gps reads NMEA sentences from a serial receiver and keeps the
// bridge's magnetic declination current.
package gps

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/osc_bridge/internal/orientation"
)

// Reader turns RMC sentences into declination updates.
type Reader struct {
	declination *orientation.Declination
}

// NewReader returns a reader feeding decl.
func NewReader(decl *orientation.Declination) *Reader {
	return &Reader{declination: decl}
}

// Run opens the serial port and consumes it until ctx is cancelled.
func (r *Reader) Run(ctx context.Context, portName string, baud int) error {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(opts)
	if err != nil {
		return fmt.Errorf("open GPS port %s: %w", portName, err)
	}
	log.Printf("gps: serial port opened on %s at %d baud", portName, baud)

	// Closing the port is the only way to unblock a pending read.
	stop := context.AfterFunc(ctx, func() { port.Close() })
	defer func() {
		if stop() {
			port.Close()
		}
	}()

	err = r.Consume(port)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Consume reads sentences from src until EOF or a read error.
func (r *Reader) Consume(src io.Reader) error {
	reader := bufio.NewReader(src)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			r.HandleLine(line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("gps read: %w", err)
		}
	}
}

// HandleLine parses one NMEA line. Anything other than a well-formed RMC
// sentence is ignored.
func (r *Reader) HandleLine(line string) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		// noisy receivers emit partial sentences
		return
	}
	if sentence.DataType() != nmea.TypeRMC {
		return
	}

	fix := FixFromRMC(sentence.(nmea.RMC))
	if fix.Valid() && fix.HasVariation {
		prev, known := r.declination.Load()
		r.declination.Set(fix.Variation)
		if !known || prev != fix.Variation {
			log.Printf("gps: magnetic declination %.1f°", fix.Variation)
		}
	}
}

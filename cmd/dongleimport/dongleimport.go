// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

// dongleimport loads dongle inventory files into the tracker database.
// Inventory files are CSV, one dongle per line:
// dongle_id,halcon_version,notes,default_owner,state

package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"

	"github.com/edrlab/dongle-tracker/pkg/stor"
	"github.com/edrlab/dongle-tracker/pkg/track"
)

// Dongle Import configuration
type Config struct {
	Dsn       string
	InputPath string `split_words:"true"`
	Verbose   bool
}

func init() {
	// Output to stdout instead of the default stderr
	log.SetOutput(os.Stdout)

	log.SetFormatter(&log.TextFormatter{
		DisableTimestamp: true,
	})
}

func usage() {
	fmt.Println("Usage: dongleimport [-serve] [-input] [-verbose]")
	flag.PrintDefaults()
}

func main() {

	// parse the command line
	serve := flag.Bool("serve", false, "if set, watch the input directory for new inventory files")
	input := flag.String("input", "", "inventory file path; only used in command line")
	verbose := flag.Bool("verbose", false, "if set, display info messages; if not set, display only warnings and errors.")
	help := flag.Bool("help", false, "shows information")

	flag.Parse()

	if *help {
		usage()
		os.Exit(1)
	}

	var c Config

	// init config from command line flags
	if *input != "" {
		c.InputPath = filepath.Dir(*input)
	}
	filename := filepath.Base(*input)
	c.Verbose = *verbose

	// process environment variables
	// DONGLEIMPORT_DSN
	// DONGLEIMPORT_INPUT_PATH
	// DONGLEIMPORT_VERBOSE
	err := envconfig.Process("dongleimport", &c)
	if err != nil {
		log.Errorln("Configuration failed: " + err.Error())
		os.Exit(1)
	}

	// the verbose flag acts on the info level
	if !c.Verbose {
		log.SetLevel(log.WarnLevel)
	}

	if c.Dsn == "" {
		log.Errorln("Missing required dsn, set DONGLEIMPORT_DSN")
		os.Exit(1)
	}

	store, err := stor.Init(c.Dsn)
	if err != nil {
		log.Errorln("Database setup failed: " + err.Error())
		os.Exit(1)
	}
	defer store.Close()

	tracker := track.NewTracker(nil, store)

	if *serve {
		log.Warnln("Entering server mode")
		log.Infoln("Watching directory: ", c.InputPath)
		// start the utility as a server
		activateServer(c, tracker)
	} else {
		// run the utility as a command line tool
		err = processFile(c, tracker, filename)
		if err != nil {
			log.Errorf("Error processing file %s: %v", filename, err)
			os.Exit(1)
		}
	}
}

// processFile imports every dongle listed in one inventory file.
// Rows whose identifier already exists are skipped, so a partially
// imported file can be dropped again after a failure.
func processFile(c Config, tracker *track.Tracker, filename string) error {

	path := filepath.Join(c.InputPath, filename)
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // trailing fields are optional

	var imported, skipped int
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		line++

		dongle, err := parseRecord(record)
		if err != nil {
			log.Warnf("%s line %d: %v", filename, line, err)
			continue
		}

		_, err = tracker.AddDongle(dongle.DongleID, dongle.HalconVersion, dongle.Notes, dongle.DefaultOwner, dongle.State)
		if errors.Is(err, stor.ErrDuplicateID) {
			log.Infof("%s line %d: dongle %s already exists, skipped", filename, line, dongle.DongleID)
			skipped++
			continue
		}
		if err != nil {
			return err
		}
		imported++
	}

	log.Warnf("Imported %d dongles from %s, %d skipped", imported, filename, skipped)
	return nil
}

// parseRecord maps one CSV record to a dongle; missing trailing fields get
// the usual defaults.
func parseRecord(record []string) (*stor.Dongle, error) {

	if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
		return nil, errors.New("missing dongle identifier")
	}

	field := func(i int, fallback string) string {
		if i < len(record) && strings.TrimSpace(record[i]) != "" {
			return strings.TrimSpace(record[i])
		}
		return fallback
	}

	return &stor.Dongle{
		DongleID:      strings.TrimSpace(record[0]),
		HalconVersion: field(1, ""),
		Notes:         field(2, ""),
		DefaultOwner:  field(3, stor.DEFAULT_OWNER),
		State:         field(4, stor.DEFAULT_STATE),
	}, nil
}

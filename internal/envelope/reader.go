package envelope

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"courtreel/internal/logging"
	"courtreel/internal/services"
)

// maxLineBytes bounds a single telemetry line; insight envelopes for long
// sessions run to several megabytes.
const maxLineBytes = 32 * 1024 * 1024

type rawEnvelope struct {
	Payload  json.RawMessage `json:"payload"`
	Stats    json.RawMessage `json:"stats"`
	Insights json.RawMessage `json:"insights"`
}

// lookup returns the named sub-object, trying the top level first and then
// one level under payload.
func (e rawEnvelope) lookup(key string) json.RawMessage {
	direct := e.field(key)
	if len(direct) > 0 {
		return direct
	}
	if len(e.Payload) == 0 {
		return nil
	}
	var nested rawEnvelope
	if err := json.Unmarshal(e.Payload, &nested); err != nil {
		return nil
	}
	return nested.field(key)
}

func (e rawEnvelope) field(key string) json.RawMessage {
	switch key {
	case "stats":
		return e.Stats
	case "insights":
		return e.Insights
	default:
		return nil
	}
}

// Read parses the JSON Lines telemetry file at path.
func Read(path string, logger *slog.Logger) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "envelope", "open", path, err)
	}
	defer f.Close()
	return Parse(f, logger)
}

// Parse reads JSON Lines telemetry from r and merges it into a Document.
// Malformed lines are logged with their line number and skipped; when no line
// parses at all the whole input is rejected. A missing session id is a soft
// failure: the document is returned with an empty VID.
func Parse(r io.Reader, logger *slog.Logger) (*Document, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	doc := &Document{}
	var envelopes []rawEnvelope
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		doc.Lines++

		var env rawEnvelope
		if err := json.Unmarshal(line, &env); err != nil {
			doc.Skipped++
			logger.Warn("skipping malformed telemetry line",
				logging.Int("line", lineNum),
				logging.Error(err))
			continue
		}
		envelopes = append(envelopes, env)
	}
	if err := scanner.Err(); err != nil {
		return nil, services.Wrap(services.ErrMalformedInput, "envelope", "scan", fmt.Sprintf("read failed at line %d", lineNum), err)
	}
	if len(envelopes) == 0 {
		return nil, services.Wrap(services.ErrMalformedInput, "envelope", "parse", "no valid envelopes found", nil)
	}

	for _, env := range envelopes {
		raw := env.lookup("stats")
		if len(raw) == 0 {
			continue
		}
		var stats Stats
		if err := json.Unmarshal(raw, &stats); err != nil {
			logger.Warn("ignoring undecodable stats object", logging.Error(err))
			continue
		}
		doc.Stats = &stats
		break
	}
	for _, env := range envelopes {
		raw := env.lookup("insights")
		if len(raw) == 0 {
			continue
		}
		var insights Insights
		if err := json.Unmarshal(raw, &insights); err != nil {
			logger.Warn("ignoring undecodable insights object", logging.Error(err))
			continue
		}
		doc.Insights = &insights
		break
	}

	// Rallies are not restricted to the first insights object: every
	// envelope's rally list contributes, in file order.
	for _, env := range envelopes {
		raw := env.lookup("insights")
		if len(raw) == 0 {
			continue
		}
		var partial struct {
			Rallies []Rally `json:"rallies"`
		}
		if err := json.Unmarshal(raw, &partial); err != nil {
			continue
		}
		doc.Rallies = append(doc.Rallies, partial.Rallies...)
	}

	if doc.Stats != nil {
		doc.VID = doc.Stats.Session.VID
	}
	if doc.VID == "" {
		logger.Warn("session vid missing; video and delivery stages will be skipped")
	}

	logger.Debug("telemetry parsed",
		logging.Int("lines", doc.Lines),
		logging.Int("skipped", doc.Skipped),
		logging.Int("rallies", len(doc.Rallies)),
		logging.String("vid", doc.VID))
	return doc, nil
}

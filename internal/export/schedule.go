package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sadopc/sleepclock/internal/schedule"
)

type scheduleFile struct {
	Schedule []schedule.Block `yaml:"schedule"`
}

// EncodeSchedule writes blocks as a YAML document with a top-level
// schedule key.
func EncodeSchedule(w io.Writer, blocks []schedule.Block) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(scheduleFile{Schedule: blocks}); err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}
	return enc.Close()
}

func WriteSchedule(blocks []schedule.Block, path string) error {
	var buf bytes.Buffer
	if err := EncodeSchedule(&buf, blocks); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write schedule file: %w", err)
	}
	return nil
}

// DecodeSchedule accepts either {schedule: [...]} or a bare list of
// blocks. The blocks are returned as written, unvalidated.
func DecodeSchedule(r io.Reader) ([]schedule.Block, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read schedule: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse schedule: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, errors.New("parse schedule: empty document")
	}

	root := doc.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var blocks []schedule.Block
		if err := root.Decode(&blocks); err != nil {
			return nil, fmt.Errorf("decode schedule: %w", err)
		}
		return blocks, nil
	case yaml.MappingNode:
		var f scheduleFile
		if err := root.Decode(&f); err != nil {
			return nil, fmt.Errorf("decode schedule: %w", err)
		}
		return f.Schedule, nil
	}
	return nil, fmt.Errorf("parse schedule: unexpected %s at top level", root.Tag)
}

func ReadSchedule(path string) ([]schedule.Block, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schedule file: %w", err)
	}
	defer f.Close()
	return DecodeSchedule(f)
}

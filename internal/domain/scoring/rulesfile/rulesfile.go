// Package rulesfile loads additional scoring rule sets from a YAML document
// and keeps a registry in sync with it.
package rulesfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	scoring "github.com/okian/lifespan/internal/domain/scoring"
	"github.com/okian/lifespan/pkg/logger"
	"github.com/okian/lifespan/pkg/metrics"
)

// Sentinel kinds for rule file errors.
var (
	ErrRead  = errors.New("read rules file failed")
	ErrParse = errors.New("parse rules file failed")
)

// Document is the on-disk layout of a rules file.
type Document struct {
	// Active optionally names the rule set to activate after loading.
	Active   string            `yaml:"active,omitempty"`
	RuleSets []scoring.RuleSet `yaml:"rulesets"`
}

// Parse decodes and validates a rules document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	seen := make(map[string]struct{}, len(doc.RuleSets))
	for _, rs := range doc.RuleSets {
		if err := rs.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[rs.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate rule set %q", scoring.ErrInvalidRuleSet, rs.Name)
		}
		seen[rs.Name] = struct{}{}
	}
	return &doc, nil
}

// Load reads and parses the rules file at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}
	return Parse(data)
}

// Apply registers every rule set of doc and activates doc.Active if set.
// Nothing is registered when any rule set is rejected.
func Apply(reg *scoring.Registry, doc *Document) error {
	for _, rs := range doc.RuleSets {
		if err := rs.Validate(); err != nil {
			return err
		}
	}
	for _, rs := range doc.RuleSets {
		if err := reg.Register(rs); err != nil {
			return err
		}
	}
	if doc.Active != "" {
		return reg.Activate(doc.Active)
	}
	return nil
}

// Watch reloads path into reg whenever it changes, until ctx is cancelled.
// A file that fails to load is logged and the previous rule sets stay active.
// The parent directory is watched so saves that rename a new file over path
// are seen.
func Watch(ctx context.Context, path string, reg *scoring.Registry, log logger.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if _, err := os.Stat(target); err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}
	log.Info(ctx, "watching rules file", logger.String("path", path))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			// Moved away; the replacement arrives as Create.
			if _, err := os.Stat(target); errors.Is(err, fs.ErrNotExist) {
				continue
			}
			doc, err := Load(target)
			if err == nil {
				err = Apply(reg, doc)
			}
			if err != nil {
				metrics.RecordRulesReload("failure")
				log.Error(ctx, "rules reload failed; keeping previous rule sets", logger.String("path", path), logger.Error(err))
				continue
			}
			metrics.RecordRulesReload("success")
			log.Info(ctx, "rules reloaded",
				logger.String("path", path),
				logger.Int("rulesets", len(doc.RuleSets)),
				logger.String("active", reg.ActiveName()),
			)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error(ctx, "rules watcher error", logger.Error(err))
		}
	}
}

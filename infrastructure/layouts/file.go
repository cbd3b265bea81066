package layouts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-eyereport/internal/domain"
	"github.com/ahrav/go-eyereport/internal/ports"
)

// FileConfig is the YAML schema of a layouts file.
//
//	include_defaults: true
//	layouts:
//	  angiografia: |
//	    LAUDO DE ANGIOGRAFIA ...
type FileConfig struct {
	// IncludeDefaults seeds the store with DefaultLayouts before applying
	// the file's entries.
	IncludeDefaults bool `yaml:"include_defaults"`
	// Layouts maps exam type tags to templates.
	Layouts map[string]string `yaml:"layouts" validate:"omitempty,dive,keys,examtag,endkeys,required"`
}

// FileStore is a LayoutStore backed by a YAML file. The file is read on
// first use and cached until Reload.
type FileStore struct {
	path      string
	validator *validator.Validate

	mu    sync.RWMutex
	store *MemoryStore

	// sf collapses concurrent first loads into one file read.
	sf singleflight.Group
}

// NewFileStore creates a store for the YAML file at path. The file is not
// read until the first lookup.
func NewFileStore(path string) (*FileStore, error) {
	v, err := newValidator()
	if err != nil {
		return nil, err
	}
	return &FileStore{path: filepath.Clean(path), validator: v}, nil
}

// GetLayout implements ports.LayoutStore.
func (f *FileStore) GetLayout(ctx context.Context, examType domain.ExamType) (string, error) {
	store, err := f.load()
	if err != nil {
		return "", ports.NewLayoutError(string(examType), err)
	}
	return store.GetLayout(ctx, examType)
}

// ExamTypes implements ports.LayoutStore.
func (f *FileStore) ExamTypes(ctx context.Context) ([]domain.ExamType, error) {
	store, err := f.load()
	if err != nil {
		return nil, err
	}
	return store.ExamTypes(ctx)
}

// Reload re-reads the file. On failure the previously loaded layouts stay
// in place.
func (f *FileStore) Reload() error {
	store, err := f.read()
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.store = store
	f.mu.Unlock()
	return nil
}

func (f *FileStore) load() (*MemoryStore, error) {
	f.mu.RLock()
	store := f.store
	f.mu.RUnlock()
	if store != nil {
		return store, nil
	}

	v, err, _ := f.sf.Do(f.path, func() (any, error) {
		f.mu.RLock()
		cached := f.store
		f.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		s, err := f.read()
		if err != nil {
			return nil, err
		}
		f.mu.Lock()
		f.store = s
		f.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*MemoryStore), nil
}

func (f *FileStore) read() (*MemoryStore, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layouts file: %w", err)
	}
	return decode(f.validator, bytes.NewReader(data))
}

// LoadReader builds a MemoryStore from YAML read from r.
func LoadReader(r io.Reader) (*MemoryStore, error) {
	v, err := newValidator()
	if err != nil {
		return nil, err
	}
	return decode(v, r)
}

// decode uses strict decoding so that misspelled keys are rejected.
func decode(v *validator.Validate, r io.Reader) (*MemoryStore, error) {
	var cfg FileConfig
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}

	if err := v.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrInvalidConfig, err)
	}

	layouts := make(map[domain.ExamType]string, len(cfg.Layouts)+len(domain.KnownExamTypes))
	if cfg.IncludeDefaults {
		for k, tmpl := range DefaultLayouts() {
			layouts[k] = tmpl
		}
	}
	for k, tmpl := range cfg.Layouts {
		layouts[domain.ExamType(k)] = tmpl
	}
	if len(layouts) == 0 {
		return nil, fmt.Errorf("%w: no layouts defined", ports.ErrInvalidConfig)
	}
	return NewMemoryStore(layouts), nil
}

func newValidator() (*validator.Validate, error) {
	v := validator.New()
	if err := v.RegisterValidation("examtag", validateExamTag); err != nil {
		return nil, fmt.Errorf("failed to register examtag validator: %w", err)
	}
	return v, nil
}

func validateExamTag(fl validator.FieldLevel) bool {
	return domain.ExamType(fl.Field().String()).WellFormed()
}

// Package artifact persists the objects that training hands to serving:
// the fitted preprocessor, the fitted model, the transformed matrices and
// diagnostic plots.
//
// Gob artifacts are wrapped in an envelope that records their kind, so a
// model file can never be loaded as a preprocessor by accident. Every file
// is written to a temporary sibling and renamed into place, so a reader
// never observes a partially written artifact.
package artifact

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/YuminosukeSato/cropyield/core/model"
	"github.com/YuminosukeSato/cropyield/pkg/errors"
	"github.com/YuminosukeSato/cropyield/pkg/log"
)

// Kind identifies the type of object stored in an envelope.
type Kind string

const (
	KindPreprocessor Kind = "preprocessor"
	KindModel        Kind = "model"
)

// FormatVersion is bumped whenever the envelope layout changes.
const FormatVersion = 1

type envelope struct {
	Kind      Kind
	Version   int
	CreatedAt time.Time
	Metadata  map[string]string
	Payload   []byte
}

// Store reads and writes artifacts. Relative paths are resolved against
// Root; absolute paths are used as given.
type Store struct {
	Root     string
	Metadata map[string]string

	base   log.Logger
	logger log.Logger
}

// NewStore returns a store rooted at root. Metadata is copied into every
// envelope it writes (run id, schema, ...).
func NewStore(root string, logger log.Logger) *Store {
	base := log.OrNop(logger)
	return &Store{
		Root:     root,
		Metadata: map[string]string{},
		base:     base,
		logger:   base.With(log.ComponentKey, "artifact"),
	}
}

// Path resolves p against the store root.
func (s *Store) Path(p string) string {
	if filepath.IsAbs(p) || s.Root == "" {
		return p
	}
	return filepath.Join(s.Root, p)
}

// Save gob-encodes obj into an envelope of the given kind at path.
func (s *Store) Save(path string, kind Kind, obj any) error {
	path = s.Path(path)
	payload, err := model.Marshal(obj)
	if err != nil {
		return errors.NewArtifactIOError("Store.Save", "encode "+string(kind), err)
	}
	env := envelope{
		Kind:      kind,
		Version:   FormatVersion,
		CreatedAt: time.Now().UTC(),
		Metadata:  s.Metadata,
		Payload:   payload,
	}
	err = writeFileAtomic(path, func(w io.Writer) error {
		return model.Encode(w, &env)
	})
	if err != nil {
		return errors.NewArtifactIOError("Store.Save", path, err)
	}
	s.logger.Info("Artifact saved",
		log.OperationKey, log.OperationSave,
		log.ArtifactKindKey, string(kind),
		log.ArtifactPathKey, path,
	)
	return nil
}

// Load decodes the artifact at path into obj, which must be a pointer.
// A missing file, an unreadable envelope, a kind other than want or a
// corrupt payload is an ArtifactIOError.
func (s *Store) Load(path string, want Kind, obj any) error {
	path = s.Path(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.NewArtifactIOError("Store.Load", path, err)
	}
	var env envelope
	if err := model.Decode(bytes.NewReader(data), &env); err != nil {
		return errors.NewArtifactIOError("Store.Load", path+": corrupt envelope", err)
	}
	if env.Kind != want {
		return errors.NewArtifactIOError("Store.Load",
			path+": kind is "+string(env.Kind)+", want "+string(want), nil)
	}
	if env.Version != FormatVersion {
		return errors.NewArtifactIOError("Store.Load",
			path+": unsupported format version", nil)
	}
	if err := model.Unmarshal(env.Payload, obj); err != nil {
		return errors.NewArtifactIOError("Store.Load", path+": corrupt payload", err)
	}
	s.logger.Debug("Artifact loaded",
		log.OperationKey, log.OperationLoad,
		log.ArtifactKindKey, string(want),
		log.ArtifactPathKey, path,
		"created_at", env.CreatedAt.Format(time.RFC3339),
	)
	return nil
}

// writeFileAtomic writes to a temp file in the destination directory and
// renames it over path. Parent directories are created as needed.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create artifact directory")
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return errors.WithStack(err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return errors.WithStack(err)
	}
	if err := tmp.Close(); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.Rename(tmpName, path))
}

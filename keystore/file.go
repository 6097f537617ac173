package keystore

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/go-jose/go-jose/v4"
	"go.uber.org/zap"
)

// FileStore keeps the private key as a JWK JSON document on disk.
type FileStore struct {
	path string
	log  *zap.Logger
}

func NewFileStore(path string, log *zap.Logger) *FileStore {
	if path == "" {
		path = DefaultPath
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FileStore{path: path, log: log.Named("keystore")}
}

func (s *FileStore) Path() string {
	return s.path
}

// LoadOrGenerate returns the stored key, creating and persisting a new one
// when the file does not exist. Every other failure is a *KeyFileError.
//
// Creation never replaces an existing file: if another process writes the
// key first, its key is loaded and ours is dropped.
func (s *FileStore) LoadOrGenerate() (*jose.JSONWebKey, error) {
	key, err := s.load()
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	key, err = Generate()
	if err != nil {
		return nil, err
	}

	if err := s.create(key); err != nil {
		if errors.Is(err, fs.ErrExist) {
			s.log.Info("key file appeared while generating, using it", zap.String("path", s.path))
			return s.load()
		}
		return nil, &KeyFileError{Path: s.path, Err: err}
	}

	fields := []zap.Field{zap.String("path", s.path)}
	if tp, err := Thumbprint(key); err != nil {
		fields = append(fields, zap.NamedError("thumbprint_error", err))
	} else {
		fields = append(fields, zap.String("thumbprint", tp))
	}
	s.log.Info("generated new key", fields...)
	return key, nil
}

// load returns an error satisfying errors.Is(err, fs.ErrNotExist) only when
// the file is missing.
func (s *FileStore) load() (*jose.JSONWebKey, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, &KeyFileError{Path: s.path, Err: err}
	}

	var key jose.JSONWebKey
	if err := key.UnmarshalJSON(data); err != nil {
		return nil, &KeyFileError{Path: s.path, Err: errors.Wrap(err, "parse JWK")}
	}
	if err := validate(&key); err != nil {
		return nil, &KeyFileError{Path: s.path, Err: err}
	}
	return &key, nil
}

// create writes the key to a temporary file next to the target and links it
// into place, so readers never observe a partially written key.
func (s *FileStore) create(key *jose.JSONWebKey) error {
	data, err := key.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "encode JWK")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".private_key-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Link(tmp.Name(), s.path)
}

var _ Provider = (*FileStore)(nil)

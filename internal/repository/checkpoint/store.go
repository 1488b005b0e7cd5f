package checkpoint

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"sgf_review/internal/adapters"
	"sgf_review/internal/bootstrap"
	"sgf_review/internal/domain"
	errs "sgf_review/internal/errors"
)

// Entry is one finished search. Only a fresh search of the same key replaces it.
type Entry struct {
	Stats      domain.PositionStats   `bson:"stats" json:"stats"`
	Candidates []domain.CandidateMove `bson:"candidates" json:"candidates"`
}

// Store keeps entries per record. Load reports errs.ErrCheckpointMiss for
// unknown keys.
type Store interface {
	Load(ctx context.Context, key string) (Entry, error)
	Save(ctx context.Context, key string, e Entry) error
	Close(ctx context.Context) error
}

// Key names the analysis of one position for a given think time.
func Key(historyHash string, seconds int) string {
	return fmt.Sprintf("analyze_%s_%dsec", historyHash, seconds)
}

// Namespace separates checkpoints of different records by absolute path.
func Namespace(recordPath string) (string, error) {
	abs, err := filepath.Abs(recordPath)
	if err != nil {
		return "", err
	}
	sum := md5.Sum([]byte(abs))
	return hex.EncodeToString(sum[:]), nil
}

// FileStore writes one file per entry under dir.
type FileStore struct {
	dir   string
	codec Codec
}

func NewFileStore(dir string, codec Codec) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}
	return &FileStore{dir: dir, codec: codec}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+s.codec.Extension())
}

func (s *FileStore) Load(ctx context.Context, key string) (Entry, error) {
	var e Entry
	f, err := os.Open(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return e, errs.ErrCheckpointMiss
	}
	if err != nil {
		return e, err
	}
	defer f.Close()

	if err := s.codec.Decode(f, &e); err != nil {
		return e, fmt.Errorf("decode checkpoint %s: %w", key, err)
	}
	return e, nil
}

// Save never leaves a half-written entry behind: it writes a temp file in
// the same directory and renames it into place.
func (s *FileStore) Save(ctx context.Context, key string, e Entry) error {
	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create checkpoint temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := s.codec.Encode(tmp, e); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path(key))
}

func (s *FileStore) Close(ctx context.Context) error {
	return nil
}

func encode(codec Codec, e Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := codec.Encode(&buf, e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(codec Codec, data []byte) (Entry, error) {
	var e Entry
	err := codec.Decode(bytes.NewReader(data), &e)
	return e, err
}

// New opens the backend named by cfg.CheckpointBackend for one record.
func New(ctx context.Context, cfg *bootstrap.Config, namespace string, log *zap.SugaredLogger) (Store, error) {
	codec := NewCodec(cfg.CheckpointCompress)

	switch cfg.CheckpointBackend {
	case "", "file":
		return NewFileStore(filepath.Join(cfg.CheckpointDir, namespace), codec)
	case "badger":
		adapter := adapters.NewAdapterBadger(cfg, log)
		if err := adapter.Init(ctx); err != nil {
			return nil, err
		}
		return NewBadgerStore(adapter, namespace, codec), nil
	case "redis":
		adapter := adapters.NewAdapterRedis(cfg, log)
		if err := adapter.Init(ctx); err != nil {
			return nil, err
		}
		return NewRedisStore(adapter, namespace, codec), nil
	case "mongo":
		adapter := adapters.NewAdapterMongo(cfg, log)
		if err := adapter.Init(ctx); err != nil {
			return nil, err
		}
		return NewMongoStore(adapter, namespace), nil
	}
	return nil, fmt.Errorf("%w: %q", errs.ErrUnknownBackend, cfg.CheckpointBackend)
}

package docstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/ppiankov/canari/internal/model"
	"github.com/ppiankov/canari/internal/worker"
)

const listReaders = 8

// GCSStore keeps each document as a JSON object in a Cloud Storage bucket:
//
//	{prefix}/{collection}/{id}.json
//
// Object writes are individually atomic but a bucket has no multi-object
// transaction, so CreateMany may store a prefix of the batch and then fail.
type GCSStore struct {
	client  *storage.Client
	bucket  *storage.BucketHandle
	prefix  string
	now     func() time.Time
	readers *worker.Pool // concurrent object reads in List
}

// NewGCSStore creates a client with application default credentials, or the
// configured service account file, and checks the bucket is reachable
func NewGCSStore(ctx context.Context, cfg model.GCSConfig) (*GCSStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: store.gcs.bucket is required", model.ErrInvalidConfiguration)
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	bucket := client.Bucket(cfg.Bucket)
	if _, err := bucket.Attrs(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("gcs bucket %q not accessible: %w", cfg.Bucket, err)
	}
	return &GCSStore{client: client, bucket: bucket, prefix: cfg.Prefix, now: time.Now, readers: worker.NewPool(listReaders)}, nil
}

func (s *GCSStore) dir(collection string) string {
	return path.Join(s.prefix, collection) + "/"
}

func (s *GCSStore) object(collection, id string) *storage.ObjectHandle {
	return s.bucket.Object(s.dir(collection) + id + ".json")
}

func (s *GCSStore) read(ctx context.Context, obj *storage.ObjectHandle) (envelope, Document, int64, error) {
	r, err := obj.NewReader(ctx)
	if err != nil {
		return envelope{}, Document{}, 0, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return envelope{}, Document{}, 0, err
	}
	env, doc, err := openEnvelope(data)
	return env, doc, r.Attrs.Generation, err
}

func (s *GCSStore) write(ctx context.Context, obj *storage.ObjectHandle, data []byte) error {
	w := obj.NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (s *GCSStore) Get(ctx context.Context, collection, id string) (Document, error) {
	_, doc, _, err := s.read(ctx, s.object(collection, id))
	if errors.Is(err, storage.ErrObjectNotExist) {
		return Document{}, notFound(collection, id)
	}
	return doc, err
}

func (s *GCSStore) Create(ctx context.Context, collection string, fields Fields) (string, error) {
	ids, err := s.CreateMany(ctx, collection, []Fields{fields})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// CreateMany writes objects one at a time and stops at the first failure,
// returning the ids written so far
func (s *GCSStore) CreateMany(ctx context.Context, collection string, docs []Fields) ([]string, error) {
	now := s.now()
	ids := make([]string, 0, len(docs))
	for i, f := range docs {
		id := uuid.NewString()
		data, err := newEnvelope(id, now, i, f)
		if err != nil {
			return ids, err
		}
		obj := s.object(collection, id).If(storage.Conditions{DoesNotExist: true})
		if err := s.write(ctx, obj, data); err != nil {
			return ids, fmt.Errorf("write %s/%s: %w", collection, id, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Update rewrites the object only if its generation is unchanged since it was read
func (s *GCSStore) Update(ctx context.Context, collection, id string, patch Fields) error {
	obj := s.object(collection, id)
	env, doc, gen, err := s.read(ctx, obj)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return notFound(collection, id)
	}
	if err != nil {
		return err
	}

	data, err := newEnvelope(id, env.CreatedAt, env.Pos, merge(doc.Fields, patch))
	if err != nil {
		return err
	}
	return s.write(ctx, obj.If(storage.Conditions{GenerationMatch: gen}), data)
}

func (s *GCSStore) List(ctx context.Context, collection string) ([]Document, error) {
	var names []string
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: s.dir(collection), Delimiter: "/"})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		if attrs.Name != "" && strings.HasSuffix(attrs.Name, ".json") {
			names = append(names, attrs.Name)
		}
	}

	type listed struct {
		env envelope
		doc Document
		ok  bool
	}
	tasks := make([]worker.Task[listed], len(names))
	for i, name := range names {
		obj := s.bucket.Object(name)
		tasks[i] = func(ctx context.Context) (listed, error) {
			env, doc, _, err := s.read(ctx, obj)
			if errors.Is(err, storage.ErrObjectNotExist) {
				return listed{}, nil // deleted between list and read
			}
			if err != nil {
				return listed{}, err
			}
			return listed{env: env, doc: doc, ok: true}, nil
		}
	}
	all, err := worker.Run(ctx, s.readers, tasks)
	if err != nil {
		return nil, err
	}

	// object listings are lexicographic; restore creation order
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].env.CreatedAt.Equal(all[j].env.CreatedAt) {
			return all[i].env.CreatedAt.Before(all[j].env.CreatedAt)
		}
		return all[i].env.Pos < all[j].env.Pos
	})

	out := make([]Document, 0, len(all))
	for _, l := range all {
		if l.ok {
			out = append(out, l.doc)
		}
	}
	return out, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

package blob

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GridFS keeps blobs in a MongoDB GridFS bucket, using the key as filename.
type GridFS struct {
	bucket *gridfs.Bucket
}

type fileMetadata struct {
	ContentType string `bson:"contentType,omitempty"`
}

func NewGridFS(db *mongo.Database, bucketName string) (*GridFS, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(bucketName))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open gridfs bucket")
	}
	return &GridFS{bucket: bucket}, nil
}

func (g *GridFS) Put(_ context.Context, key string, r io.Reader, contentType string) (Info, error) {
	key, err := CleanKey(key)
	if err != nil {
		return Info{}, err
	}
	counter := &countingReader{r: r}
	opts := options.GridFSUpload().SetMetadata(fileMetadata{ContentType: contentType})
	if _, err := g.bucket.UploadFromStream(key, counter, opts); err != nil {
		return Info{}, errors.Wrapf(err, "failed to upload %s", key)
	}
	return Info{Key: key, Size: counter.n, ContentType: contentType}, nil
}

func (g *GridFS) Open(_ context.Context, key string) (io.ReadCloser, Info, error) {
	key, err := CleanKey(key)
	if err != nil {
		return nil, Info{}, err
	}
	stream, err := g.bucket.OpenDownloadStreamByName(key)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, Info{}, ErrNotFound
		}
		return nil, Info{}, errors.Wrapf(err, "failed to open %s", key)
	}
	file := stream.GetFile()
	info := Info{Key: key, Size: file.Length}
	var meta fileMetadata
	if len(file.Metadata) > 0 && bson.Unmarshal(file.Metadata, &meta) == nil {
		info.ContentType = meta.ContentType
	}
	return stream, info, nil
}

// Delete removes every revision stored under key.
func (g *GridFS) Delete(ctx context.Context, key string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	cursor, err := g.bucket.FindContext(ctx, bson.M{"filename": key})
	if err != nil {
		return errors.Wrapf(err, "failed to look up %s", key)
	}
	var files []gridfs.File
	if err := cursor.All(ctx, &files); err != nil {
		return errors.Wrapf(err, "failed to read revisions of %s", key)
	}
	if len(files) == 0 {
		return ErrNotFound
	}
	for _, f := range files {
		if err := g.bucket.DeleteContext(ctx, f.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return errors.Wrapf(err, "failed to delete %s", key)
		}
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

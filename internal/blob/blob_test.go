package blob

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanKey(t *testing.T) {
	cases := map[string]struct {
		in   string
		want string
		err  bool
	}{
		"plain":          {in: "projects/p1/tests/t1/1-a.png", want: "projects/p1/tests/t1/1-a.png"},
		"leading slash":  {in: "/projects/p1/a.png", want: "projects/p1/a.png"},
		"empty":          {in: "  ", err: true},
		"parent":         {in: "projects/../../etc/passwd", err: true},
		"double slash":   {in: "projects//a", err: true},
		"backslash":      {in: `projects\a`, err: true},
		"trailing slash": {in: "projects/", err: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := CleanKey(tc.in)
			if tc.err {
				assert.ErrorIs(t, err, ErrInvalidKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	info, err := s.Put(ctx, "projects/p1/tests/t1/1-shot.json", strings.NewReader("hello"), "application/json")
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size)

	rc, got, err := s.Open(ctx, "projects/p1/tests/t1/1-shot.json")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello", string(body))
	assert.Equal(t, int64(5), got.Size)
	assert.Equal(t, "application/json", strings.Split(got.ContentType, ";")[0])

	require.NoError(t, s.Delete(ctx, "projects/p1/tests/t1/1-shot.json"))
	assert.ErrorIs(t, s.Delete(ctx, "projects/p1/tests/t1/1-shot.json"), ErrNotFound)

	_, _, err = s.Open(ctx, "projects/p1/tests/t1/1-shot.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestDiskStore(t *testing.T) {
	d, err := NewDisk(t.TempDir())
	require.NoError(t, err)
	exerciseStore(t, d)
}

type failingStore struct {
	calls int
}

func (f *failingStore) Put(context.Context, string, io.Reader, string) (Info, error) {
	f.calls++
	return Info{}, errors.New("boom")
}

func (f *failingStore) Open(context.Context, string) (io.ReadCloser, Info, error) {
	f.calls++
	return nil, Info{}, ErrNotFound
}

func (f *failingStore) Delete(context.Context, string) error {
	f.calls++
	return errors.New("boom")
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	ctx := context.Background()
	logger, hook := test.NewNullLogger()
	inner := &failingStore{}
	b := NewBreaker(inner, "evidence", logger)

	for i := 0; i < 5; i++ {
		err := b.Delete(ctx, "k")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}
	assert.ErrorIs(t, b.Delete(ctx, "k"), ErrUnavailable)
	assert.Equal(t, 5, inner.calls)
	assert.Equal(t, "open", b.State())

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestBreakerIgnoresNotFound(t *testing.T) {
	ctx := context.Background()
	logger, _ := test.NewNullLogger()
	b := NewBreaker(&failingStore{}, "evidence", logger)

	for i := 0; i < 10; i++ {
		_, _, err := b.Open(ctx, "k")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, "closed", b.State())
}

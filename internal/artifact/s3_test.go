package artifact

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthline/chartpress/internal/domain"
)

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = body
	if in.ContentType != nil {
		f.types[*in.Key] = *in.ContentType
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[*in.Key]
	if !ok {
		return nil, &noSuchKey{}
	}
	out := &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(body)))}
	if ct, ok := f.types[*in.Key]; ok {
		out.ContentType = &ct
	}
	return out, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	out := &s3.ListObjectsV2Output{}
	for k := range f.objects {
		if strings.HasPrefix(k, *in.Prefix) {
			key := k
			out.Contents = append(out.Contents, types.Object{Key: &key})
		}
	}
	return out, nil
}

type noSuchKey struct{}

func (*noSuchKey) Error() string { return "NoSuchKey" }

func TestS3Store(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store := &S3{client: fake, bucket: "charts", prefix: "newsletter"}

	t.Run("put applies the prefix", func(t *testing.T) {
		a := domain.NewArtifact("maps/rents.svg", "image/svg+xml", []byte("<svg/>"))
		require.NoError(t, store.Put(ctx, a))
		assert.Contains(t, fake.objects, "newsletter/maps/rents.svg")
		assert.Equal(t, "image/svg+xml", fake.types["newsletter/maps/rents.svg"])
	})

	t.Run("get strips the prefix", func(t *testing.T) {
		got, err := store.Get(ctx, "maps/rents.svg")
		require.NoError(t, err)
		assert.Equal(t, []byte("<svg/>"), got.Body)
		assert.Equal(t, "image/svg+xml", got.ContentType)
	})

	t.Run("list returns store keys", func(t *testing.T) {
		keys, err := store.List(ctx, "maps/")
		require.NoError(t, err)
		assert.Equal(t, []string{"maps/rents.svg"}, keys)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := store.Get(ctx, "maps/nope.svg")
		assert.Error(t, err)
	})

	t.Run("bucket required", func(t *testing.T) {
		_, err := NewS3(ctx, S3Config{})
		assert.ErrorContains(t, err, "bucket")
	})
}

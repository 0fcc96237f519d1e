package domain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Vovarama1992/scene_narrator/internal/audio"
	"github.com/Vovarama1992/scene_narrator/internal/ports"
)

type fakeCamera struct {
	blob *ImageBlob
	err  error
}

func (f *fakeCamera) Fetch(context.Context) (*ImageBlob, error) { return f.blob, f.err }

type fakeNormalizer struct {
	err   error
	calls atomic.Int32
}

func (f *fakeNormalizer) Normalize(blob *ImageBlob) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return "data:image/jpeg;base64," + string(blob.Source), nil
}

type fakeDescriber struct {
	text  string
	err   error
	calls atomic.Int32
}

func (f *fakeDescriber) Describe(_ context.Context, imageURL string) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	if f.text != "" {
		return f.text, nil
	}
	return "scene of " + strings.TrimPrefix(imageURL, "data:image/jpeg;base64,"), nil
}

// fakeSpeech writes the text itself as the "mp3" so tests can match outputs to requests.
type fakeSpeech struct {
	err     error
	partial bool
	voices  sync.Map
}

func (f *fakeSpeech) Synthesize(_ context.Context, text, voice, outPath string) error {
	f.voices.Store(text, voice)
	if f.partial {
		_ = os.WriteFile(outPath, []byte("ID3"), 0o644)
	}
	if f.err != nil {
		_ = os.Remove(outPath)
		return f.err
	}
	return os.WriteFile(outPath, []byte(text), 0o644)
}

type fakeS3Service struct {
	err      error
	uploaded []string
	mu       sync.Mutex
}

func (f *fakeS3Service) ObjectKey(filename string) string { return "audio/x/" + filename }

func (f *fakeS3Service) SaveAudio(_ context.Context, localPath string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded = append(f.uploaded, string(data))
	return "https://bucket.example.com/audio/" + filepath.Base(localPath), nil
}

type fakeRepo struct {
	mu      sync.Mutex
	records []ports.DescriptionRecord
	err     error
}

func (f *fakeRepo) Create(_ context.Context, rec ports.DescriptionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	sources []string
}

func (f *fakeNotifier) Notify(_ context.Context, source string, _ error, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources = append(f.sources, source)
	return nil
}

type fixture struct {
	svc        *NarrationService
	dir        string
	store      *audio.Store
	camera     *fakeCamera
	normalizer *fakeNormalizer
	describer  *fakeDescriber
	speech     *fakeSpeech
	s3         *fakeS3Service
	repo       *fakeRepo
	notifier   *fakeNotifier
}

func newFixture(t *testing.T, perRequest bool) *fixture {
	t.Helper()
	dir := t.TempDir()
	store, err := audio.NewStore(dir, time.Minute, zap.NewNop().Sugar())
	require.NoError(t, err)

	f := &fixture{
		dir:        dir,
		store:      store,
		camera:     &fakeCamera{blob: &ImageBlob{Data: []byte{1}, ContentType: "image/jpeg", Source: SourceCamera}},
		normalizer: &fakeNormalizer{},
		describer:  &fakeDescriber{},
		speech:     &fakeSpeech{},
		s3:         &fakeS3Service{},
		repo:       &fakeRepo{},
		notifier:   &fakeNotifier{},
	}
	f.svc = NewNarrationService(NarrationDeps{
		Camera:         f.camera,
		Normalizer:     f.normalizer,
		Describer:      f.describer,
		Speech:         f.speech,
		Store:          store,
		S3:             f.s3,
		Repo:           f.repo,
		Notifier:       f.notifier,
		PerRequestURLs: perRequest,
		Log:            zap.NewNop().Sugar(),
	})
	return f
}

func (f *fixture) tempFiles(t *testing.T) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(f.dir, "tmp_*"))
	require.NoError(t, err)
	return matches
}

func upload(ct string) *ImageBlob {
	return &ImageBlob{Data: []byte{0xff, 0xd8}, ContentType: ct, Source: SourceUpload}
}

func TestDescribeUploadLocal(t *testing.T) {
	f := newFixture(t, false)
	f.describer.text = "A red square."

	res, err := f.svc.DescribeUpload(context.Background(), upload("image/jpeg"), Options{Voice: "good_person"})
	require.NoError(t, err)

	assert.Equal(t, &Result{Description: "A red square.", AudioURL: "/get-audio"}, res)

	latest, ok := f.store.Latest()
	require.True(t, ok)
	data, err := os.ReadFile(latest.Path)
	require.NoError(t, err)
	assert.Equal(t, "A red square.", string(data))

	voice, _ := f.speech.voices.Load("A red square.")
	assert.Equal(t, "good_person", voice)

	require.Len(t, f.repo.records, 1)
	rec := f.repo.records[0]
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "A red square.", rec.Description)
	assert.Equal(t, "/get-audio/"+latest.ID, rec.AudioURL, "record must name its own artifact")
	assert.Equal(t, time.UTC, rec.CreatedAt.Location())
}

func TestDescribeUploadPerRequestURL(t *testing.T) {
	f := newFixture(t, true)

	res, err := f.svc.DescribeUpload(context.Background(), upload("image/png"), Options{})
	require.NoError(t, err)

	latest, ok := f.store.Latest()
	require.True(t, ok)
	assert.Equal(t, "/get-audio/"+latest.ID, res.AudioURL)
}

func TestDescribeUploadRejectsContentTypeBeforeProcessing(t *testing.T) {
	f := newFixture(t, false)

	for _, ct := range []string{"image/gif", "text/plain", "", "image/jpg"} {
		_, err := f.svc.DescribeUpload(context.Background(), upload(ct), Options{})
		assert.ErrorIs(t, err, ErrInvalidInput, ct)
	}
	assert.Zero(t, f.normalizer.calls.Load())
	assert.Zero(t, f.describer.calls.Load())
	f.svc.Wait()
	assert.Empty(t, f.notifier.sources)
}

func TestDescribeCameraFailureSkipsInference(t *testing.T) {
	f := newFixture(t, false)
	f.camera.err = fmt.Errorf("%w: connection refused", ErrUpstreamUnavailable)

	_, err := f.svc.DescribeCamera(context.Background(), Options{})
	require.ErrorIs(t, err, ErrUpstreamUnavailable)

	assert.Zero(t, f.describer.calls.Load())
	assert.Empty(t, f.repo.records)
	f.svc.Wait()
	assert.Equal(t, []string{"describe-ip-camera"}, f.notifier.sources)
}

func TestDescribeCameraUsesCameraSource(t *testing.T) {
	f := newFixture(t, false)

	res, err := f.svc.DescribeCamera(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, "scene of camera", res.Description)
}

func TestStageErrorsPropagate(t *testing.T) {
	cases := map[string]struct {
		setup func(f *fixture)
		want  error
	}{
		"decode":    {func(f *fixture) { f.normalizer.err = ErrDecode }, ErrDecode},
		"inference": {func(f *fixture) { f.describer.err = ErrInference }, ErrInference},
		"tts":       {func(f *fixture) { f.speech.err = ErrAudioGeneration }, ErrAudioGeneration},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, false)
			tc.setup(f)

			_, err := f.svc.DescribeUpload(context.Background(), upload("image/jpeg"), Options{})
			require.ErrorIs(t, err, tc.want)
			assert.Empty(t, f.repo.records)

			_, ok := f.store.Latest()
			assert.False(t, ok)
		})
	}
}

func TestProcessUploadCloud(t *testing.T) {
	f := newFixture(t, false)
	f.describer.text = "A desk."

	res, err := f.svc.ProcessUpload(context.Background(), upload("image/jpeg"), "")
	require.NoError(t, err)

	assert.Equal(t, "A desk.", res.Description)
	assert.True(t, strings.HasPrefix(res.AudioURL, "https://bucket.example.com/audio/"))
	assert.Equal(t, []string{"A desk."}, f.s3.uploaded)
	assert.Empty(t, f.tempFiles(t), "temp audio must be removed")

	_, ok := f.store.Latest()
	assert.False(t, ok, "cloud delivery must not touch the local store")

	require.Len(t, f.repo.records, 1)
	assert.Equal(t, res.AudioURL, f.repo.records[0].AudioURL)
}

func TestProcessUploadCleansUpOnFailure(t *testing.T) {
	t.Run("upload", func(t *testing.T) {
		f := newFixture(t, false)
		f.s3.err = fmt.Errorf("%w: denied", ErrStorage)

		_, err := f.svc.ProcessUpload(context.Background(), upload("image/jpeg"), "")
		require.ErrorIs(t, err, ErrStorage)
		assert.Empty(t, f.tempFiles(t))
	})

	t.Run("tts", func(t *testing.T) {
		f := newFixture(t, false)
		f.speech.partial = true
		f.speech.err = ErrAudioGeneration

		_, err := f.svc.ProcessUpload(context.Background(), upload("image/jpeg"), "")
		require.ErrorIs(t, err, ErrAudioGeneration)
		assert.Empty(t, f.tempFiles(t))
	})
}

func TestCloudWithoutStorage(t *testing.T) {
	f := newFixture(t, false)
	f.svc.S3 = nil

	_, err := f.svc.ProcessUpload(context.Background(), upload("image/jpeg"), "")
	assert.ErrorIs(t, err, ErrStorage)
}

func TestPersistenceFailureDoesNotFailResponse(t *testing.T) {
	f := newFixture(t, false)
	f.repo.err = errors.New("db down")

	res, err := f.svc.DescribeUpload(context.Background(), upload("image/jpeg"), Options{})
	require.NoError(t, err)
	assert.Equal(t, "/get-audio", res.AudioURL)
	f.svc.Wait()
	assert.Equal(t, []string{"persistence"}, f.notifier.sources)
}

func TestWithoutRepository(t *testing.T) {
	f := newFixture(t, false)
	f.svc.Repo = nil

	_, err := f.svc.DescribeUpload(context.Background(), upload("image/jpeg"), Options{})
	assert.NoError(t, err)
}

func TestConcurrentRequestsGetOwnAudio(t *testing.T) {
	f := newFixture(t, true)

	const n = 10
	results := make([]*Result, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			blob := &ImageBlob{Data: []byte{byte(i)}, ContentType: "image/jpeg", Source: ImageSource(fmt.Sprintf("req-%d", i))}
			results[i], errs[i] = f.svc.DescribeUpload(context.Background(), blob, Options{})
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, fmt.Sprintf("scene of req-%d", i), results[i].Description)

		id := strings.TrimPrefix(results[i].AudioURL, "/get-audio/")
		assert.False(t, seen[id], "audio id reused")
		seen[id] = true

		data, err := os.ReadFile(f.store.Path(id))
		require.NoError(t, err)
		assert.Equal(t, results[i].Description, string(data))
	}
	assert.Len(t, f.repo.records, n)
	assert.Empty(t, f.tempFiles(t))
}

type fakeS3Client struct {
	key, contentType string
	body             string
	size             int64
	err              error
}

func (f *fakeS3Client) PutObject(_ context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	b, _ := io.ReadAll(r)
	f.key, f.body, f.size, f.contentType = key, string(b), size, contentType
	return "https://cdn.example.com/" + key, nil
}

func TestS3ServiceSaveAudio(t *testing.T) {
	client := &fakeS3Client{}
	svc := NewS3Service(client, time.Second).(*s3Service)
	svc.now = func() time.Time { return time.Date(2026, 10, 16, 23, 30, 0, 0, time.UTC) }

	path := filepath.Join(t.TempDir(), "tmp.mp3")
	require.NoError(t, os.WriteFile(path, []byte("ID3data"), 0o644))

	url, err := svc.SaveAudio(context.Background(), path)
	require.NoError(t, err)

	assert.Regexp(t, `^audio/2026-10-16/audio_[0-9a-f-]{36}\.mp3$`, client.key)
	assert.Equal(t, "https://cdn.example.com/"+client.key, url)
	assert.Equal(t, "ID3data", client.body)
	assert.Equal(t, int64(7), client.size)
	assert.Equal(t, "audio/mpeg", client.contentType)
}

func TestS3ServiceErrors(t *testing.T) {
	svc := NewS3Service(&fakeS3Client{err: errors.New("403")}, time.Second)

	_, err := svc.SaveAudio(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"))
	assert.ErrorIs(t, err, ErrStorage)

	path := filepath.Join(t.TempDir(), "a.mp3")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	_, err = svc.SaveAudio(context.Background(), path)
	assert.ErrorIs(t, err, ErrStorage)
}

func TestCheckContentType(t *testing.T) {
	assert.NoError(t, CheckContentType("image/jpeg"))
	assert.NoError(t, CheckContentType("image/png"))
	assert.ErrorIs(t, CheckContentType("image/webp"), ErrInvalidInput)
}

func TestSharedURLRecordsKeepOwnArtifact(t *testing.T) {
	f := newFixture(t, false)

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			blob := &ImageBlob{Data: []byte{byte(i)}, ContentType: "image/jpeg", Source: ImageSource(fmt.Sprintf("req-%d", i))}
			res, err := f.svc.DescribeUpload(context.Background(), blob, Options{})
			assert.NoError(t, err)
			if res != nil {
				assert.Equal(t, "/get-audio", res.AudioURL)
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, f.repo.records, n)
	seen := map[string]bool{}
	for _, rec := range f.repo.records {
		require.True(t, strings.HasPrefix(rec.AudioURL, "/get-audio/"), rec.AudioURL)
		id := strings.TrimPrefix(rec.AudioURL, "/get-audio/")
		assert.False(t, seen[id], "two records reference the same audio")
		seen[id] = true

		a, ok := f.store.Get(id)
		require.True(t, ok)
		data, err := os.ReadFile(a.Path)
		require.NoError(t, err)
		assert.Equal(t, rec.Description, string(data))
	}
}

type blockingNotifier struct {
	release chan struct{}
	calls   atomic.Int32
}

func (b *blockingNotifier) Notify(context.Context, string, error, string) error {
	b.calls.Add(1)
	<-b.release
	return nil
}

func TestSlowNotifierDoesNotDelayResponse(t *testing.T) {
	f := newFixture(t, false)
	notifier := &blockingNotifier{release: make(chan struct{})}
	f.svc.Notifier = notifier
	f.camera.err = fmt.Errorf("%w: connection refused", ErrUpstreamUnavailable)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.DescribeCamera(ctx, Options{})
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	case <-time.After(time.Second):
		t.Fatal("DescribeCamera blocked on the admin notifier")
	}

	close(notifier.release)
	f.svc.Wait()
	assert.Equal(t, int32(1), notifier.calls.Load())
}

func TestSlowNotifierDoesNotDelaySuccess(t *testing.T) {
	f := newFixture(t, false)
	notifier := &blockingNotifier{release: make(chan struct{})}
	f.svc.Notifier = notifier
	f.repo.err = errors.New("db down")

	start := time.Now()
	res, err := f.svc.DescribeUpload(context.Background(), upload("image/jpeg"), Options{})
	require.NoError(t, err)
	assert.Equal(t, "/get-audio", res.AudioURL)
	assert.Less(t, time.Since(start), time.Second)

	close(notifier.release)
	f.svc.Wait()
}

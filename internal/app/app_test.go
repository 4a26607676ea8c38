package app

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"outfitlens/internal/client"
	"outfitlens/internal/domain"
	"outfitlens/internal/infra"
	"outfitlens/internal/wizard"
)

func testConfig(t *testing.T) *infra.Config {
	t.Helper()
	return &infra.Config{
		AppEnv:            "test",
		JWTSecret:         "test-secret",
		StorageBackend:    infra.StorageBackendFilesystem,
		StoragePath:       t.TempDir(),
		StorageBaseURL:    "http://localhost/static",
		MaxUploadBytes:    1 << 20,
		GenerationWorkers: 2,
	}
}

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

// forgedPNG is a valid PNG signature and IHDR claiming w x h pixels, with no
// pixel data.
func forgedPNG(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8], ihdr[9] = 8, 2
	chunk := append([]byte("IHDR"), ihdr...)
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func startServer(t *testing.T) (*client.Client, *Server) {
	t.Helper()
	srv, err := Build(context.Background(), testConfig(t), zerolog.Nop())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Worker.Run(ctx)
	}()
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-done
		srv.Close()
	})
	return client.New(client.Options{BaseURL: ts.URL}), srv
}

func TestBuildRequiresReachableDatabase(t *testing.T) {
	cfg := testConfig(t)
	cfg.DatabaseURL = "postgres://127.0.0.1:1/outfitlens?sslmode=disable&connect_timeout=1"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := Build(ctx, cfg, zerolog.Nop()); err == nil {
		t.Fatalf("Build() error = nil, want connection error")
	}
}

func TestDemoAccountIsRejected(t *testing.T) {
	api, _ := startServer(t)
	ctx := context.Background()

	_, err := api.Login(ctx, "fail@test.com", "whatever123")
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Login() error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Message != "Invalid credentials" {
		t.Fatalf("Login() error = %d %q, want 401 %q", apiErr.Status, apiErr.Message, "Invalid credentials")
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	api, _ := startServer(t)
	if _, err := api.Me(context.Background()); !errors.Is(err, client.ErrNotAuthenticated) {
		t.Fatalf("Me() error = %v, want ErrNotAuthenticated", err)
	}

	api.SetSession(domain.AuthTokens{AccessToken: "garbage"})
	_, err := api.Stats(context.Background())
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("Stats() error = %v, want 401", err)
	}
}

func TestWizardAgainstServer(t *testing.T) {
	api, _ := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if _, err := api.Register(ctx, "ana@example.com", "correct-horse", "Ana Putri"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	me, err := api.Me(ctx)
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if me.Email != "ana@example.com" {
		t.Fatalf("Me().Email = %q, want %q", me.Email, "ana@example.com")
	}

	ctrl := wizard.New(api, api, wizard.Options{PollInterval: 20 * time.Millisecond})
	defer ctrl.Close()

	subject, err := ctrl.SubmitImage(ctx, wizard.StepSubjectPhoto, wizard.File{Name: "me.png", Data: pngBytes(t, 120, 200, color.RGBA{R: 200, A: 255})})
	if err != nil {
		t.Fatalf("SubmitImage(subject) error = %v", err)
	}
	if subject.Type != domain.ImageTypeSubject || subject.Width != 120 || subject.Height != 200 {
		t.Fatalf("subject = %+v, want user_photo 120x200", subject)
	}
	if _, err := ctrl.SubmitImage(ctx, wizard.StepGarmentPhoto, wizard.File{Name: "shirt.png", Data: pngBytes(t, 60, 60, color.RGBA{B: 200, A: 255})}); err != nil {
		t.Fatalf("SubmitImage(garment) error = %v", err)
	}
	if got := ctrl.Snapshot().Step; got != wizard.StepConfirm {
		t.Fatalf("Step = %v, want %v", got, wizard.StepConfirm)
	}

	if err := ctrl.ConfirmAndGenerate(ctx); err != nil {
		t.Fatalf("ConfirmAndGenerate() error = %v", err)
	}
	snap, err := ctrl.Await(ctx)
	if err != nil {
		t.Fatalf("Await() error = %v", err)
	}
	if snap.Phase != wizard.PhaseSucceeded {
		t.Fatalf("Phase = %v (%s), want %v", snap.Phase, snap.ErrorText, wizard.PhaseSucceeded)
	}
	result := snap.ResultImage()
	if result == nil || result.Type != domain.ImageTypeResult {
		t.Fatalf("ResultImage() = %+v, want generated_result", result)
	}

	history, err := api.History(ctx, domain.PageRequest{})
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if history.Total != 1 || history.Items[0].ID != snap.JobID() || history.Items[0].Status != domain.GenerationCompleted {
		t.Fatalf("History() = %+v, want one completed job %s", history, snap.JobID())
	}

	uploads, err := api.ListImages(ctx, domain.ImageTypeSubject, domain.PageRequest{})
	if err != nil {
		t.Fatalf("ListImages() error = %v", err)
	}
	if uploads.Total != 1 || uploads.Items[0].ID != subject.ID {
		t.Fatalf("ListImages(user_photo) = %+v, want only %s", uploads, subject.ID)
	}

	stats, err := api.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalGenerations != 1 || stats.ImagesUploaded != 2 {
		t.Fatalf("Stats() = %+v, want 1 generation and 2 uploads", stats)
	}

	archive, err := api.Download(ctx, snap.JobID())
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatalf("zip.NewReader() error = %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	want := []string{"garment.png", "result.png", "subject.png"}
	if len(names) != len(want) {
		t.Fatalf("archive entries = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("archive entries = %v, want %v", names, want)
		}
	}

	ctrl.Reset()
	if got := ctrl.Snapshot(); got.Step != wizard.StepSubjectPhoto || got.SubjectImage != nil || got.ActiveJob != nil {
		t.Fatalf("Snapshot() after Reset = %+v, want initial", got)
	}
}

func TestUploadValidation(t *testing.T) {
	api, _ := startServer(t)
	ctx := context.Background()
	if _, err := api.Register(ctx, "budi@example.com", "correct-horse", "Budi"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tests := []struct {
		name   string
		data   []byte
		status int
	}{
		{"not an image", []byte("hello, world"), http.StatusUnsupportedMediaType},
		{"too large", bytes.Repeat([]byte{0xff}, 3<<19), http.StatusRequestEntityTooLarge},
		{"huge dimensions", forgedPNG(200000, 200000), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := api.UploadImage(ctx, wizard.File{Name: "x.png", Data: tt.data}, domain.ImageTypeSubject)
			var apiErr *client.APIError
			if !errors.As(err, &apiErr) || apiErr.Status != tt.status {
				t.Fatalf("UploadImage() error = %v, want status %d", err, tt.status)
			}
		})
	}
}

func TestDeleteImage(t *testing.T) {
	api, _ := startServer(t)
	ctx := context.Background()
	if _, err := api.Register(ctx, "citra@example.com", "correct-horse", "Citra"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	img, err := api.UploadImage(ctx, wizard.File{Name: "shirt.png", Data: pngBytes(t, 10, 10, color.White)}, domain.ImageTypeGarment)
	if err != nil {
		t.Fatalf("UploadImage() error = %v", err)
	}
	if err := api.DeleteImage(ctx, img.ID); err != nil {
		t.Fatalf("DeleteImage() error = %v", err)
	}
	err = api.DeleteImage(ctx, img.ID)
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Fatalf("second DeleteImage() error = %v, want 404", err)
	}
}

func TestListImagesHugePage(t *testing.T) {
	api, srv := startServer(t)
	ctx := context.Background()
	if _, err := api.Register(ctx, "dewi@example.com", "correct-horse", "Dewi"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := api.UploadImage(ctx, wizard.File{Name: "me.png", Data: pngBytes(t, 10, 10, color.Black)}, domain.ImageTypeSubject); err != nil {
		t.Fatalf("UploadImage() error = %v", err)
	}

	for _, page := range []string{"461168601842738792", "9223372036854775807", "-5"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/images?page="+page, nil)
		req.Header.Set("Authorization", "Bearer "+api.Session().AccessToken)
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("GET /api/v1/images?page=%s status = %d, want 200", page, rec.Code)
		}
	}
}

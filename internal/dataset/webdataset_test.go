package dataset

import (
	"archive/tar"
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/pkg/errors"
)

func TestReadShardPairsEntries(t *testing.T) {
	buf := buildShard(t, map[string]filePair{
		"000001": {imageExt: ".png", image: encodeGray(t, 16, 0), label: 3},
		"000002": {imageExt: ".png", image: encodeGray(t, 16, 255), label: 7},
	})

	dir := t.TempDir()
	shard := filepath.Join(dir, "shard-000000.tar")
	if err := os.WriteFile(shard, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write shard: %v", err)
	}

	samples, err := ReadShard(context.Background(), shard, 4)
	if err != nil {
		t.Fatalf("ReadShard returned error: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if samples[0].Key != "000001" || samples[0].Label != 3 {
		t.Fatalf("unexpected first sample %s/%d", samples[0].Key, samples[0].Label)
	}
	// black pixels are full ink, white pixels are background
	if got := samples[0].Grid[0][0]; got != DigitsMaxIntensity {
		t.Fatalf("black image intensity = %v, want %d", got, DigitsMaxIntensity)
	}
	if got := samples[1].Grid[7][7]; got != 0 {
		t.Fatalf("white image intensity = %v, want 0", got)
	}
}

func TestReadShardIncompletePair(t *testing.T) {
	buf := &bytes.Buffer{}
	tw := tar.NewWriter(buf)
	addTarEntry(t, tw, "lonely.cls", []byte("4"))
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	shard := filepath.Join(t.TempDir(), "shard-000000.tar")
	if err := os.WriteFile(shard, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write shard: %v", err)
	}

	if _, err := ReadShard(context.Background(), shard, 4); err == nil {
		t.Fatal("expected error for unpaired label")
	}
}

func TestReadShardRejectsNonDigitLabel(t *testing.T) {
	buf := buildShard(t, map[string]filePair{
		"000001": {imageExt: ".png", image: encodeGray(t, 16, 0), label: 12},
	})
	shard := filepath.Join(t.TempDir(), "shard-000000.tar")
	if err := os.WriteFile(shard, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write shard: %v", err)
	}

	_, err := ReadShard(context.Background(), shard, 4)
	if !errors.Is(err, ErrLabelRange) {
		t.Fatalf("expected ErrLabelRange, got %v", err)
	}
}

func TestReadShardPendingOverflow(t *testing.T) {
	buf := &bytes.Buffer{}
	tw := tar.NewWriter(buf)
	for i := 0; i < 3; i++ {
		addTarEntry(t, tw, strconv.Itoa(i)+".cls", []byte("1"))
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	shard := filepath.Join(t.TempDir(), "shard-000000.tar")
	if err := os.WriteFile(shard, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write shard: %v", err)
	}

	_, err := ReadShard(context.Background(), shard, 2)
	if err != ErrPendingOverflow {
		t.Fatalf("expected ErrPendingOverflow, got %v", err)
	}
}

func buildShard(t *testing.T, data map[string]filePair) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	tw := tar.NewWriter(buf)
	for key, pair := range data {
		addTarEntry(t, tw, key+pair.imageExt, pair.image)
		addTarEntry(t, tw, key+".cls", []byte(strconv.Itoa(pair.label)))
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	return buf
}

type filePair struct {
	imageExt string
	image    []byte
	label    int
}

func addTarEntry(t *testing.T, tw *tar.Writer, name string, data []byte) {
	t.Helper()
	hdr := &tar.Header{Name: name, Size: int64(len(data)), Mode: 0o644}
	if err := tw.WriteHeader(hdr); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if _, err := tw.Write(data); err != nil {
		t.Fatalf("write data: %v", err)
	}
}

func encodeGray(t *testing.T, size int, level uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetGray(x, y, color.Gray{Y: level})
		}
	}
	buf := &bytes.Buffer{}
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

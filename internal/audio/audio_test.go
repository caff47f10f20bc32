package audio

import (
	"bytes"
	"errors"
	"testing"
)

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestUnprimedIsSilent(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlayer(&buf)
	if err := p.PlayChime(50); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Fatalf("unprimed player wrote %q", buf.String())
	}
}

func TestPrimedBells(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlayer(&buf)
	p.Prime()
	p.Prime()
	if !p.Primed() {
		t.Fatal("expected primed")
	}

	p.PlayChime(50)
	if buf.String() != "\a" {
		t.Fatalf("chime = %q", buf.String())
	}
	buf.Reset()
	p.PlayCelebration(50)
	if buf.String() != "\a\a\a\a" {
		t.Fatalf("celebration = %q", buf.String())
	}
}

func TestZeroVolumeIsSilent(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlayer(&buf)
	p.Prime()
	p.PlayCelebration(0)
	if buf.Len() != 0 {
		t.Fatal("volume 0 should be silent")
	}
}

func TestWriteErrorReturned(t *testing.T) {
	p := NewPlayer(failWriter{})
	p.Prime()
	if err := p.PlayChime(10); err == nil {
		t.Fatal("expected write error")
	}
}

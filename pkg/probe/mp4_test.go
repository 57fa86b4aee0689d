package probe

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/matryer/is"
	"github.com/spf13/afero"
	"github.com/tauraamui/idlesqueeze/pkg/video/videoframe"
)

func overloadFS() func() {
	fsRef := fs
	fs = afero.NewMemMapFs()
	return func() { fs = fsRef }
}

func videoInit(timescale uint32, w, h uint16) *mp4.InitSegment {
	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(timescale, "video", "und")
	entry := mp4.NewVisualSampleEntryBox("avc1")
	entry.Width, entry.Height = w, h
	init.Moov.Trak.Mdia.Minf.Stbl.Stsd.AddChild(entry)
	return init
}

func TestFromMoovUsesDominantSampleDelta(t *testing.T) {
	is := is.New(t)
	init := videoInit(30000, 1280, 720)
	stbl := init.Moov.Trak.Mdia.Minf.Stbl
	stbl.Stts = &mp4.SttsBox{SampleCount: []uint32{10, 290}, SampleTimeDelta: []uint32{2002, 1001}}
	stbl.Stsz = &mp4.StszBox{SampleNumber: 300}
	init.Moov.Trak.Mdia.Mdhd.Duration = 300300

	info, err := fromMoov(init.Moov)
	is.NoErr(err)
	is.Equal(info.Width, 1280)
	is.Equal(info.Height, 720)
	is.Equal(info.Codec, "avc1")
	is.Equal(info.FrameCount, 300)
	is.Equal(info.FrameRate, videoframe.Rational{Num: 30000, Den: 1001})
	is.Equal(info.Duration, 10010*time.Millisecond)
}

func TestFromMoovFallsBackToTrackDefaults(t *testing.T) {
	is := is.New(t)
	init := videoInit(90000, 640, 480)
	init.Moov.Trak.Mdia.Minf.Stbl.Stts = &mp4.SttsBox{}
	for _, trex := range init.Moov.Mvex.Trexs {
		trex.DefaultSampleDuration = 3600
	}

	info, err := fromMoov(init.Moov)
	is.NoErr(err)
	is.Equal(info.FrameRate, videoframe.Rational{Num: 25, Den: 1})
}

func TestFromMoovWithoutVideoTrack(t *testing.T) {
	is := is.New(t)
	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(48000, "audio", "und")

	_, err := fromMoov(init.Moov)
	is.True(errors.Is(err, ErrNoVideoTrack))

	_, err = fromMoov(nil)
	is.True(err != nil)
}

func TestMP4ProbeReadsEncodedFile(t *testing.T) {
	is := is.New(t)
	defer overloadFS()()

	init := videoInit(24000, 320, 240)
	for _, trex := range init.Moov.Mvex.Trexs {
		trex.DefaultSampleDuration = 1001
	}
	f, err := fs.Create("/videos/clip.mp4")
	is.NoErr(err)
	is.NoErr(init.Encode(f))
	is.NoErr(f.Close())

	info, err := MP4().Probe(context.Background(), "/videos/clip.mp4")
	is.NoErr(err)
	is.Equal(info.Width, 320)
	is.Equal(info.Height, 240)
	is.Equal(info.FrameRate, videoframe.Rational{Num: 24000, Den: 1001})
}

func TestMP4ProbeMissingFile(t *testing.T) {
	is := is.New(t)
	defer overloadFS()()

	_, err := MP4().Probe(context.Background(), "/videos/missing.mp4")
	is.True(err != nil)
}

func TestMP4ProbeSkipsLargeMdat(t *testing.T) {
	is := is.New(t)
	defer overloadFS()()

	init := videoInit(25, 640, 360)
	for _, trex := range init.Moov.Mvex.Trexs {
		trex.DefaultSampleDuration = 1
	}

	f, err := fs.Create("/videos/long.mp4")
	is.NoErr(err)
	is.NoErr(init.Ftyp.Encode(f))
	mdat := &mp4.MdatBox{Data: bytes.Repeat([]byte{0xAB}, 8<<20)}
	is.NoErr(mdat.Encode(f))
	is.NoErr(init.Moov.Encode(f))
	is.NoErr(f.Close())

	r, err := fs.Open("/videos/long.mp4")
	is.NoErr(err)
	defer r.Close()
	file, err := decodeHeaders(r)
	is.NoErr(err)
	is.True(file.Mdat != nil)
	is.True(file.Mdat.IsLazy()) // payload left on disk
	is.Equal(len(file.Mdat.Data), 0)
	is.True(file.Moov != nil) // boxes after mdat are still reached

	info, err := MP4().Probe(context.Background(), "/videos/long.mp4")
	is.NoErr(err)
	is.Equal(info.Width, 640)
	is.Equal(info.Height, 360)
	is.Equal(info.FrameRate, videoframe.Rational{Num: 25, Den: 1})
}

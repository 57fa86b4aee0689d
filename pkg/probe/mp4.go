package probe

import (
	"context"
	"io"
	"time"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/tauraamui/idlesqueeze/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

type mp4Prober struct{}

// MP4 reads the exact frame rate from the track's timescale and sample
// durations without decoding any media.
func MP4() Prober {
	return mp4Prober{}
}

func (mp4Prober) Probe(ctx context.Context, path string) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}

	f, err := fs.Open(path)
	if err != nil {
		return Info{}, xerror.Errorf("unable to open %s: %w", path, err)
	}
	defer f.Close()

	file, err := decodeHeaders(f)
	if err != nil {
		return Info{}, xerror.Errorf("unable to decode mp4 %s: %w", path, err)
	}

	moov := file.Moov
	if moov == nil && file.Init != nil {
		moov = file.Init.Moov
	}
	info, err := fromMoov(moov)
	if err != nil {
		return Info{}, xerror.Errorf("%w", err).WithParam("path", path)
	}

	if stat, err := f.Stat(); err == nil && info.Duration > 0 {
		info.BitRate = int64(float64(stat.Size()*8) / info.Duration.Seconds())
	}
	return info, nil
}

// decodeHeaders walks the top level boxes, seeking over mdat payloads
// instead of reading them in.
func decodeHeaders(r io.ReadSeeker) (*mp4.File, error) {
	return mp4.DecodeFile(r, mp4.WithDecodeMode(mp4.DecModeLazyMdat))
}

func fromMoov(moov *mp4.MoovBox) (Info, error) {
	if moov == nil {
		return Info{}, xerror.New("no moov box found")
	}

	trak := videoTrack(moov)
	if trak == nil {
		return Info{}, ErrNoVideoTrack
	}

	info := Info{}
	var timescale uint32
	if mdhd := trak.Mdia.Mdhd; mdhd != nil {
		timescale = mdhd.Timescale
		if timescale > 0 {
			info.Duration = time.Duration(mdhd.Duration) * time.Second / time.Duration(timescale)
		}
	}

	var stbl *mp4.StblBox
	if trak.Mdia.Minf != nil {
		stbl = trak.Mdia.Minf.Stbl
	}
	if stbl != nil {
		if stbl.Stsd != nil {
			for _, child := range stbl.Stsd.Children {
				if entry, ok := child.(*mp4.VisualSampleEntryBox); ok {
					info.Width, info.Height = int(entry.Width), int(entry.Height)
					info.Codec = entry.Type()
					break
				}
			}
		}
		if stbl.Stsz != nil {
			info.FrameCount = int(stbl.Stsz.SampleNumber)
		}
	}

	delta := dominantSampleDelta(stbl)
	if delta == 0 {
		delta = defaultSampleDuration(moov, trak.Tkhd)
	}
	if timescale > 0 && delta > 0 {
		info.FrameRate = videoframe.Rational{Num: int64(timescale), Den: int64(delta)}.Reduce()
	}
	return info, nil
}

func videoTrack(moov *mp4.MoovBox) *mp4.TrakBox {
	for _, trak := range moov.Traks {
		if trak.Mdia != nil && trak.Mdia.Hdlr != nil && trak.Mdia.Hdlr.HandlerType == "vide" {
			return trak
		}
	}
	return nil
}

// dominantSampleDelta is the sample duration covering the most samples.
func dominantSampleDelta(stbl *mp4.StblBox) uint32 {
	if stbl == nil || stbl.Stts == nil {
		return 0
	}
	var best, bestCount uint32
	for i, count := range stbl.Stts.SampleCount {
		if i >= len(stbl.Stts.SampleTimeDelta) {
			break
		}
		if count > bestCount && stbl.Stts.SampleTimeDelta[i] > 0 {
			best, bestCount = stbl.Stts.SampleTimeDelta[i], count
		}
	}
	return best
}

func defaultSampleDuration(moov *mp4.MoovBox, tkhd *mp4.TkhdBox) uint32 {
	if moov.Mvex == nil {
		return 0
	}
	for _, trex := range moov.Mvex.Trexs {
		if tkhd == nil || trex.TrackID == tkhd.TrackID {
			return trex.DefaultSampleDuration
		}
	}
	return 0
}

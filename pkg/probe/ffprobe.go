package probe

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/tauraamui/idlesqueeze/pkg/execrun"
	"github.com/tauraamui/idlesqueeze/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

type ffprobeProber struct {
	runner execrun.Runner
}

func FFprobe(runner execrun.Runner) Prober {
	if runner == nil {
		runner = execrun.Default()
	}
	return &ffprobeProber{runner: runner}
}

func ffprobeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,codec_name,r_frame_rate,avg_frame_rate,nb_frames,bit_rate:format=duration,bit_rate",
		"-of", "json",
		path,
	}
}

type ffprobeOutput struct {
	Streams []struct {
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		CodecName    string `json:"codec_name"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
		NbFrames     string `json:"nb_frames"`
		BitRate      string `json:"bit_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
}

func (p *ffprobeProber) Probe(ctx context.Context, path string) (Info, error) {
	out, err := p.runner.Run(ctx, "ffprobe", ffprobeArgs(path)...)
	if err != nil {
		return Info{}, xerror.Errorf("unable to probe %s: %w", path, err)
	}
	return parseFFprobe(out)
}

func parseFFprobe(out []byte) (Info, error) {
	var parsed ffprobeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return Info{}, xerror.Errorf("unable to parse ffprobe output: %w", err)
	}
	if len(parsed.Streams) == 0 {
		return Info{}, ErrNoVideoTrack
	}
	stream := parsed.Streams[0]

	info := Info{
		Width:  stream.Width,
		Height: stream.Height,
		Codec:  stream.CodecName,
	}

	rate, err := videoframe.ParseRational(stream.RFrameRate)
	if err != nil || !rate.Valid() {
		rate, err = videoframe.ParseRational(stream.AvgFrameRate)
	}
	if err == nil && rate.Valid() {
		info.FrameRate = rate.Reduce()
	}

	if n, err := strconv.Atoi(stream.NbFrames); err == nil {
		info.FrameCount = n
	}
	if secs, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil {
		info.Duration = time.Duration(secs * float64(time.Second))
	}
	info.BitRate = firstInt(stream.BitRate, parsed.Format.BitRate)

	if info.FrameCount == 0 && info.Duration > 0 && info.FrameRate.Valid() {
		info.FrameCount = int(info.Duration.Seconds()*info.FrameRate.Float64() + 0.5)
	}
	return info, nil
}

func firstInt(values ...string) int64 {
	for _, v := range values {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

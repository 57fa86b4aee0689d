package configdef

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tauraamui/idlesqueeze/pkg/scale"
	"gopkg.in/dealancer/validate.v2"
)

type Resolution struct {
	Mode   string `json:"mode" validate:"one_of=source,fixed"`
	Width  int    `json:"width" validate:"gte=0"`
	Height int    `json:"height" validate:"gte=0"`
}

type Engine struct {
	AreaThreshold      float64     `json:"area_threshold" validate:"gte=0"`
	IdleCriteria       int         `json:"idle_criteria" validate:"gte=1"`
	ScaleBands         scale.Bands `json:"scale_bands"`
	TargetResolution   Resolution  `json:"target_resolution"`
	InsufficientFrames string      `json:"insufficient_frames" validate:"one_of=empty,fail"`
	LabelIdleFrames    bool        `json:"label_idle_frames"`
	Backend            string      `json:"backend" validate:"one_of=opencv,ffmpeg,mock"`
	// Codec left empty picks the backend's own default.
	Codec              string      `json:"codec"`
}

type Server struct {
	Address           string   `json:"address" validate:"empty=false"`
	UploadDir         string   `json:"upload_dir" validate:"empty=false"`
	ProcessedDir      string   `json:"processed_dir" validate:"empty=false"`
	WorkDir           string   `json:"work_dir" validate:"empty=false"`
	AllowedExtensions []string `json:"allowed_extensions" validate:"empty=false"`
	MaxUploadMB       int64    `json:"max_upload_mb" validate:"gte=1 & lte=16384"`
	MaxConcurrentJobs int      `json:"max_concurrent_jobs" validate:"gte=1 & lte=64"`
	Remux             bool     `json:"remux"`
	// RetentionHours prunes uploads and outputs older than this, 0 keeps them forever.
	RetentionHours    int      `json:"retention_hours" validate:"gte=0"`
}

type Tools struct {
	FFmpegPath  string `json:"ffmpeg_path"`
	FFprobePath string `json:"ffprobe_path"`
}

type Values struct {
	Debug  bool   `json:"debug"`
	Secret string `json:"secret"`
	Engine Engine `json:"engine"`
	Server Server `json:"server"`
	Tools  Tools  `json:"tools"`
}

// Default is the configuration written by setup and the base every
// loaded file is decoded on top of.
func Default() Values {
	return Values{
		Engine: Engine{
			AreaThreshold:      900,
			IdleCriteria:       5,
			ScaleBands:         scale.DefaultBands(),
			TargetResolution:   Resolution{Mode: "source"},
			InsufficientFrames: "empty",
			Backend:            "opencv",
		},
		Server: Server{
			Address:           ":8080",
			UploadDir:         "uploads",
			ProcessedDir:      "processed",
			WorkDir:           "work",
			AllowedExtensions: []string{"mp4", "avi", "mov", "mkv"},
			MaxUploadMB:       2048,
			MaxConcurrentJobs: 2,
			Remux:             true,
		},
	}
}

func (v Values) RunValidate() error {
	if err := validate.Validate(&v); err != nil {
		return err
	}
	return v.Validate()
}

func (v Values) Validate() error {
	const validationErrorHeader = "validation failed: %w"
	if err := v.Engine.ScaleBands.Validate(); err != nil {
		return fmt.Errorf(validationErrorHeader, err)
	}
	if r := v.Engine.TargetResolution; r.Mode == "fixed" && (r.Width < 1 || r.Height < 1) {
		return fmt.Errorf(validationErrorHeader, errors.New("fixed target resolution needs a width and height"))
	}
	if ext, ok := firstMalformedExtension(v.Server.AllowedExtensions); !ok {
		return fmt.Errorf(validationErrorHeader, fmt.Errorf("allowed extension %q must be bare lower case alphanumerics", ext))
	}
	return nil
}

func firstMalformedExtension(exts []string) (string, bool) {
	for _, ext := range exts {
		if len(ext) == 0 || strings.ToLower(ext) != ext {
			return ext, false
		}
		for _, r := range ext {
			if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
				return ext, false
			}
		}
	}
	return "", true
}

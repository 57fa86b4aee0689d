// Package motion classifies a pair of adjacent frames as active or idle
// by thresholding their difference image.
package motion

import (
	"image"

	"github.com/tauraamui/idlesqueeze/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
	"gocv.io/x/gocv"
)

const (
	intensityCutoff  = 20
	dilateIterations = 3
)

var blurKernel = image.Pt(5, 5)

// column layout of the stats matrix from ConnectedComponentsWithStats
const (
	statLeft = iota
	statTop
	statWidth
	statHeight
	statArea
)

type Region struct {
	Bounds image.Rectangle
	Area   int
}

type Classification struct {
	Active  bool
	Regions []Region
}

type Detector struct {
	AreaThreshold float64
}

func NewDetector(areaThreshold float64) Detector {
	return Detector{AreaThreshold: areaThreshold}
}

func (d Detector) Classify(previous, current videoframe.Frame) (Classification, error) {
	return Classify(previous, current, d.AreaThreshold)
}

// Classify marks the pair active as soon as one motion region has an area
// of at least areaThreshold pixels. Regions past that one are not scanned.
func Classify(previous, current videoframe.Frame, areaThreshold float64) (Classification, error) {
	if err := videoframe.SameDimensions(previous, current); err != nil {
		return Classification{}, err
	}

	prev, err := videoframe.Mat(previous)
	if err != nil {
		return Classification{}, err
	}
	curr, err := videoframe.Mat(current)
	if err != nil {
		return Classification{}, err
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(*prev, *curr, &diff)

	if isZero(diff) {
		return Classification{}, nil
	}

	mask, err := motionMask(diff)
	if err != nil {
		return Classification{}, err
	}
	defer mask.Close()

	return scanRegions(mask, areaThreshold), nil
}

func isZero(diff gocv.Mat) bool {
	flat := diff.Reshape(1, 0)
	defer flat.Close()
	return gocv.CountNonZero(flat) == 0
}

func motionMask(diff gocv.Mat) (gocv.Mat, error) {
	if diff.Channels() != 3 {
		return gocv.Mat{}, xerror.Errorf("expected 3 channel difference image, got %d", diff.Channels())
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(diff, &gray, gocv.ColorBGRToGray)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, blurKernel, 0, 0, gocv.BorderDefault)

	mask := gocv.NewMat()
	gocv.Threshold(blurred, &mask, intensityCutoff, 255, gocv.ThresholdBinary)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
	defer kernel.Close()
	for i := 0; i < dilateIterations; i++ {
		gocv.Dilate(mask, &mask, kernel)
	}
	return mask, nil
}

func scanRegions(mask gocv.Mat, areaThreshold float64) Classification {
	labels, stats, centroids := gocv.NewMat(), gocv.NewMat(), gocv.NewMat()
	defer labels.Close()
	defer stats.Close()
	defer centroids.Close()

	cls := Classification{}
	count := gocv.ConnectedComponentsWithStats(mask, &labels, &stats, &centroids)
	// label 0 is the background
	for label := 1; label < count; label++ {
		x := int(stats.GetIntAt(label, statLeft))
		y := int(stats.GetIntAt(label, statTop))
		w := int(stats.GetIntAt(label, statWidth))
		h := int(stats.GetIntAt(label, statHeight))
		region := Region{
			Bounds: image.Rect(x, y, x+w, y+h),
			Area:   int(stats.GetIntAt(label, statArea)),
		}
		cls.Regions = append(cls.Regions, region)
		if float64(region.Area) >= areaThreshold {
			cls.Active = true
			break
		}
	}
	return cls
}

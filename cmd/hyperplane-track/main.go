package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/LdDl/hyperplane-go/hyperplane"
	"github.com/LdDl/hyperplane-go/warp"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

var (
	flagVideo   = flag.String("video", "", "Input video file")
	flagCorners = flag.String("corners", "", "Initial corners x1,y1,x2,y2,x3,y3,x4,y4 (top-left, top-right, bottom-right, bottom-left)")
	flagConfig  = flag.String("config", "", "JSON configuration file, empty = defaults")
	flagOut     = flag.String("out", "", "Write annotated video to this file (MJPG)")
	flagSeed    = flag.Uint64("seed", hyperplane.DefaultSeed, "Seed for synthetic training samples")
	flagVerbose = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()
	err := realMain()
	if err != nil {
		panic(err)
	}
}

func realMain() error {
	logger := golog.NewLogger("hyperplane-track")
	if *flagVerbose {
		logger = golog.NewDevelopmentLogger("hyperplane-track")
	}

	corners, err := parseCorners(*flagCorners)
	if err != nil {
		return err
	}
	cfg := hyperplane.DefaultConfig()
	if *flagConfig != "" {
		cfg, err = hyperplane.LoadConfig(*flagConfig)
		if err != nil {
			return err
		}
	}
	tracker, err := hyperplane.NewTracker(cfg, hyperplane.WithLogger(logger), hyperplane.WithSeed(*flagSeed))
	if err != nil {
		return errors.Wrap(err, "Can't create tracker")
	}

	video, err := gocv.VideoCaptureFile(*flagVideo)
	if err != nil {
		return errors.Wrapf(err, "Can't open video '%s'", *flagVideo)
	}
	defer video.Close()

	img := gocv.NewMat()
	defer img.Close()
	gray := gocv.NewMat()
	defer gray.Close()

	if ok := video.Read(&img); !ok || img.Empty() {
		return errors.Errorf("Can't read first frame of '%s'", *flagVideo)
	}
	frame, err := toGray(img, &gray)
	if err != nil {
		return err
	}
	if err := tracker.Initialize(frame, corners); err != nil {
		return errors.Wrap(err, "Can't initialize tracker")
	}

	var writer *gocv.VideoWriter
	if *flagOut != "" {
		fps := video.Get(gocv.VideoCaptureFPS)
		if fps <= 0 {
			fps = 25
		}
		writer, err = gocv.VideoWriterFile(*flagOut, "MJPG", fps, img.Cols(), img.Rows(), true)
		if err != nil {
			return errors.Wrapf(err, "Can't create video writer '%s'", *flagOut)
		}
		defer writer.Close()
	}

	initial := [4]image.Point{}
	for i, pt := range corners {
		initial[i] = pt.Round()
	}
	if err := emit(writer, &img, 0, initial); err != nil {
		return err
	}

	for frameIdx := 1; ; frameIdx++ {
		if ok := video.Read(&img); !ok || img.Empty() {
			break
		}
		frame, err := toGray(img, &gray)
		if err != nil {
			return err
		}
		tracked, err := tracker.Update(frame)
		if err != nil {
			return errors.Wrapf(err, "Can't track frame %d", frameIdx)
		}
		if err := emit(writer, &img, frameIdx, tracked); err != nil {
			return err
		}
	}
	center := tracker.Track().GetCenter()
	logger.Infow("done", "id", tracker.GetID(), "center_x", center.X, "center_y", center.Y)
	return nil
}

func toGray(src gocv.Mat, dst *gocv.Mat) (image.Image, error) {
	gocv.CvtColor(src, dst, gocv.ColorBGRToGray)
	frame, err := dst.ToImage()
	if err != nil {
		return nil, errors.Wrap(err, "Can't convert frame")
	}
	return frame, nil
}

// emit prints tracked corners and draws them into output video
func emit(writer *gocv.VideoWriter, img *gocv.Mat, frameIdx int, corners [4]image.Point) error {
	parts := make([]string, len(corners))
	for i, pt := range corners {
		parts[i] = fmt.Sprintf("%d,%d", pt.X, pt.Y)
	}
	fmt.Printf("%d;%s\n", frameIdx, strings.Join(parts, ";"))
	if writer == nil {
		return nil
	}
	pts := gocv.NewPointsVectorFromPoints([][]image.Point{corners[:]})
	defer pts.Close()
	gocv.Polylines(img, pts, true, color.RGBA{0, 255, 0, 255}, 2)
	if err := writer.Write(*img); err != nil {
		return errors.Wrapf(err, "Can't write frame %d", frameIdx)
	}
	return nil
}

func parseCorners(s string) ([4]warp.Point, error) {
	var corners [4]warp.Point
	fields := strings.Split(s, ",")
	if len(fields) != 8 {
		return corners, errors.Errorf("corners must have 8 comma separated values. Has %d", len(fields))
	}
	for i := range corners {
		x, err := strconv.ParseFloat(strings.TrimSpace(fields[2*i]), 64)
		if err != nil {
			return corners, errors.Wrapf(err, "Can't parse x of corner %d", i)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(fields[2*i+1]), 64)
		if err != nil {
			return corners, errors.Wrapf(err, "Can't parse y of corner %d", i)
		}
		corners[i] = warp.NewPoint(x, y)
	}
	return corners, nil
}

package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/tauraamui/rgbdplay/pkg/catalog"
	"github.com/tauraamui/rgbdplay/pkg/config"
	"github.com/tauraamui/rgbdplay/pkg/configdef"
	"github.com/tauraamui/rgbdplay/pkg/log"
	"github.com/tauraamui/rgbdplay/pkg/player"
	"github.com/tauraamui/rgbdplay/pkg/pointcloud"
	"github.com/tauraamui/rgbdplay/pkg/render"
	_ "github.com/tauraamui/rgbdplay/pkg/render/window"
	"github.com/tauraamui/rgbdplay/pkg/snapshot"
	"github.com/tauraamui/rgbdplay/pkg/video/videobackend"
	"github.com/tauraamui/xerror"
	"github.com/urfave/cli/v2"
)

const (
	inputFlag    = "input"
	outputFlag   = "output"
	backendFlag  = "backend"
	rendererFlag = "renderer"
	configFlag   = "config"
	debugFlag    = "debug"
)

func newApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:            "rgbdplay",
		Usage:           "play back an Azure Kinect mkv recording and snapshot point clouds",
		UsageText:       "rgbdplay --input <recording.mkv> [--output <dir>] [other options]",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  inputFlag,
				Usage: "input mkv `FILE`",
			},
			&cli.StringFlag{
				Name:  outputFlag,
				Usage: "output `DIR` to store intrinsic.json and point cloud snapshots",
			},
			&cli.StringFlag{
				Name:    backendFlag,
				Usage:   "capture backend, opencv or mock",
				EnvVars: []string{"RGBDPLAY_VIDEO_BACKEND"},
			},
			&cli.StringFlag{
				Name:  rendererFlag,
				Usage: "renderer, window, terminal or none",
			},
			&cli.StringFlag{
				Name:    configFlag,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
				EnvVars: []string{"RGBDPLAY_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  debugFlag,
				Usage: "enable debug logging",
			},
		},
		Action: playAction,
		Commands: []*cli.Command{
			{
				Name:   "init-config",
				Usage:  "write the default config file",
				Action: initConfigAction,
			},
		},
	}
}

func initConfigAction(c *cli.Context) error {
	err := config.DefaultCreator().Create()
	if errors.Is(err, configdef.ErrConfigAlreadyExists) {
		log.Error("%v", err)
		return nil
	}
	return err
}

func resolveValues(c *cli.Context) (configdef.Values, error) {
	values, err := config.ResolverFor(c.String(configFlag)).Resolve()
	if err != nil {
		return values, err
	}

	if c.IsSet(backendFlag) {
		values.Backend = c.String(backendFlag)
	}
	if c.IsSet(rendererFlag) {
		values.Renderer = c.String(rendererFlag)
	}
	if c.Bool(debugFlag) {
		values.Debug = true
	}
	if err := values.RunValidate(); err != nil {
		return values, xerror.Errorf("invalid options: %w", err)
	}
	return values, nil
}

func playAction(c *cli.Context) error {
	input := c.String(inputFlag)
	if len(input) == 0 {
		return cli.ShowAppHelp(c)
	}

	values, err := resolveValues(c)
	if err != nil {
		return err
	}
	if values.Debug {
		log.SetLevel("debug")
	}

	out := c.App.Writer
	dir, export := snapshot.PrepareDir(c.String(outputFlag), out)

	backend := videobackend.Resolve(values.Backend, videobackend.Settings{
		ColorPipeline:  values.Pipelines.Color,
		DepthPipeline:  values.Pipelines.Depth,
		MockFrames:     values.Mock.Frames,
		MockEmptyEvery: values.Mock.EmptyEvery,
	})
	log.Debug("Opening %s with %s backend", input, backend.Name())
	capture, err := backend.Open(c.Context, input)
	if err != nil {
		return xerror.Errorf("unable to open file %s: %w", input, err)
	}

	renderer, err := render.Resolve(values.Renderer, render.Settings{
		Title:     values.Window.Title,
		Width:     values.Window.Width,
		Height:    values.Window.Height,
		WaitKeyMS: values.Window.WaitKeyMS,
		Out:       out,
	})
	if err != nil {
		capture.Close()
		return err
	}

	opts := player.Options{Out: out, MaxEmptyPolls: values.MaxEmptyPolls}
	if export {
		s, closeExport := setupExport(out, dir, input, capture, values)
		defer closeExport()
		if s != nil {
			opts.Snapshotter = s
		}
	}

	return player.New(capture, renderer, opts).Run(c.Context)
}

// setupExport exports the recording's intrinsics into dir and builds the
// snapshot writer. Any failure leaves playback-only mode in place.
func setupExport(out io.Writer, dir, input string, capture videobackend.Capture, values configdef.Values) (*snapshot.Writer, func()) {
	noop := func() {}

	md, err := capture.Metadata()
	if err != nil {
		log.Error("Unable to read recording metadata: %v", err)
		fmt.Fprintln(out, "No recording metadata, only play mkv")
		return nil, noop
	}

	in, err := snapshot.ExportIntrinsics(dir, md)
	if err != nil {
		log.Error("Unable to export intrinsics: %v", err)
		fmt.Fprintln(out, "No camera intrinsics, only play mkv")
		return nil, noop
	}

	pcOpts := pointcloud.Options{
		DepthScale: values.PointCloud.DepthScale,
		DepthTrunc: values.PointCloud.DepthTrunc,
	}
	if err := snapshot.WriteDatasetConfig(dir, pcOpts); err != nil {
		log.Warn("Unable to write dataset config: %v", err)
	}

	encoding, err := pointcloud.ParsePCDType(values.PointCloud.Encoding)
	if err != nil {
		log.Warn("%v, writing ascii", err)
	}

	opts := snapshot.Options{
		Dir:        dir,
		Intrinsics: in,
		Format:     values.PointCloud.Format,
		Encoding:   encoding,
		PointCloud: pcOpts,
		SaveImages: values.SaveImages,
		Session:    capture.UUID(),
		Recording:  filepath.Base(input),
	}

	closeExport := noop
	if values.Catalog {
		cat, err := catalog.Open(dir)
		if err != nil {
			log.Error("Unable to open snapshot catalog: %v", err)
		} else {
			opts.Catalog = cat
			closeExport = func() {
				if err := cat.Close(); err != nil {
					log.Error("Unable to close snapshot catalog: %v", err)
				}
			}
		}
	}

	w, err := snapshot.NewWriter(opts)
	if err != nil {
		log.Error("Unable to set up snapshots: %v", err)
		fmt.Fprintln(out, "Unable to set up snapshots, only play mkv")
		closeExport()
		return nil, noop
	}
	return w, closeExport
}

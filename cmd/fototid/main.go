// fototid stamps photos with the time they were taken and lays them out as printable pages.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sync"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/fsnotify/fsnotify"
	"k8s.io/klog/v2"

	"github.com/tstromberg/fototid/pkg/fototid"
)

var (
	outDir     = flag.String("out", "", "Location of output directory for pages")
	configPath = flag.String("config", "", "YAML job file with style and page settings")
	useExif    = flag.Bool("exiftool", false, "read metadata with exiftool instead of the built-in EXIF reader")
	fontPath   = flag.String("font", "", "TTF/OTF font for the timestamp (default: built-in)")
	dryRun     = flag.Bool("n", false, "only list resolved timestamps, don't render pages")
	watchFlag  = flag.Bool("watch", false, "watch inputs for changes and re-render")
	quality    = flag.Int("quality", 0, "write JPEG pages at this quality instead of PNG")

	format  = flag.String("format", "default", "date format: default, short, long, custom")
	layout  = flag.String("layout", "", "Go time layout used with --format=custom")
	color   = flag.String("color", "#ffffff", "text color")
	size    = flag.Int("size", 16, "font size in pixels (8-48)")
	opacity = flag.Int("opacity", 50, "text background opacity percent (0-100)")
	mono    = flag.Bool("mono", false, "convert photos to monochrome before stamping")

	dpi      = flag.Int("dpi", 300, "page resolution")
	width    = flag.Float64("width", fototid.LSize.Width, "page width in mm")
	height   = flag.Float64("height", fototid.LSize.Height, "page height in mm")
	margin   = flag.Float64("margin", 0, "margin on every side in mm")
	perPage  = flag.Int("per-page", 1, "photos per page: 1, 2 or 4")
	grayPage = flag.Bool("grayscale", false, "print pages in grayscale")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	c := fototid.DefaultConfig()
	if *configPath != "" {
		if err := fototid.LoadConfig(*configPath, c); err != nil {
			klog.Exitf("config: %v", err)
		}
	}
	if err := applyFlags(c); err != nil {
		klog.Exitf("flags: %v", err)
	}
	c.InDirs = flag.Args()

	if len(c.InDirs) == 0 {
		klog.Exitf("usage: %s -out <dir> <photo or dir> ...", os.Args[0])
	}
	if c.OutDir == "" && !*dryRun {
		klog.Exitf("--out is a required flag")
	}
	if err := c.Validate(); err != nil {
		klog.Exitf("invalid settings: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	md, closeMD := metadataReader(c)
	defer closeMD()

	x := fototid.NewExtractor(fototid.NewResolver(md))
	defer x.Stop()
	a := fototid.NewAnnotator(c.FontPath)

	sel, err := resolve(ctx, x, c)
	if err != nil {
		klog.Exitf("resolve failed: %v", err)
	}
	if err := output(c, a, sel); err != nil {
		klog.Exitf("print failed: %v", err)
	}

	if *watchFlag {
		if err := watch(ctx, c, x, a); err != nil {
			klog.Exitf("watch failed: %v", err)
		}
	}
}

// applyFlags overrides c with the flags given on the command line.
func applyFlags(c *fototid.Config) error {
	var err error
	flag.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "out":
			c.OutDir = *outDir
		case "font":
			c.FontPath = *fontPath
		case "exiftool":
			c.Exiftool = *useExif
		case "format":
			err = c.Style.Format.UnmarshalText([]byte(*format))
		case "layout":
			c.Style.CustomLayout = *layout
		case "color":
			c.Style.Color, err = fototid.ParseRGB(*color)
		case "size":
			c.Style.FontSize = *size
		case "opacity":
			c.Style.BackgroundOpacity = *opacity
		case "mono":
			c.Style.ColorMode = fototid.Color
			if *mono {
				c.Style.ColorMode = fototid.Monochrome
			}
		case "dpi":
			c.Page.DPI = *dpi
		case "width":
			c.Page.Size.Width = *width
		case "height":
			c.Page.Size.Height = *height
		case "margin":
			c.Page.Margins = fototid.Margins{Top: *margin, Right: *margin, Bottom: *margin, Left: *margin}
		case "per-page":
			c.Page.PhotosPerPage = *perPage
		case "grayscale":
			c.Page.ColorMode = fototid.Color
			if *grayPage {
				c.Page.ColorMode = fototid.Monochrome
			}
		}
	})
	return err
}

func metadataReader(c *fototid.Config) (fototid.MetadataReader, func()) {
	if !c.Exiftool {
		return fototid.ExifReader{}, func() {}
	}

	et, err := fototid.NewExiftoolReader()
	if err != nil {
		klog.Warningf("exiftool unavailable, using built-in reader: %v", err)
		return fototid.ExifReader{}, func() {}
	}
	return et, func() {
		if err := et.Close(); err != nil {
			klog.Errorf("Failed to close exiftool: %v", err)
		}
	}
}

var errSuperseded = errors.New("batch superseded")

// resolve finds the input photos and resolves their timestamps.
func resolve(ctx context.Context, x *fototid.Extractor, c *fototid.Config) (*fototid.Selection, error) {
	paths, err := fototid.Find(c.InDirs...)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}

	b := x.Start(ctx, paths)
	sel, completed := fototid.Collect(b, func(i, n int) {
		klog.V(1).Infof("resolving %d/%d ...", i, n)
	})
	if !completed {
		return sel, errSuperseded
	}

	klog.Infof("resolved timestamps for %d images", sel.Len())
	return sel, nil
}

// output stamps and prints the selection, or lists it in dry-run mode.
func output(c *fototid.Config, a *fototid.Annotator, sel *fototid.Selection) error {
	if *dryRun {
		for _, r := range sel.Records() {
			fmt.Printf("%s\t%s\t%s\n", r.Path, r.Taken, r.Taken.Source())
		}
		return nil
	}

	images, failed := a.Prepare(sel.Records(), c.Style)
	for _, f := range failed {
		klog.Errorf("skipping %v", f)
	}

	job, err := fototid.Layout(c.Page, images)
	if err != nil {
		return fmt.Errorf("layout: %w", err)
	}

	s := &fototid.FileSurface{Dir: c.OutDir, Quality: *quality}
	if err := fototid.Print(job, s); err != nil {
		if errors.Is(err, fototid.ErrDeviceInit) {
			return err
		}
		klog.Errorf("some photos did not print: %v", err)
	}

	klog.Infof("printed %d photos on %d pages to %s (%d failed)",
		len(images)-len(job.Failures), len(s.Pages()), c.OutDir, len(failed)+len(job.Failures))
	return nil
}

// watch watches the input directories and re-renders when photos change.
// A change during a running batch cancels it in favor of a fresh one.
func watch(ctx context.Context, c *fototid.Config, x *fototid.Extractor, a *fototid.Annotator) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()

	dirs := []string{}
	for _, in := range c.InDirs {
		if st, err := os.Stat(in); err == nil && st.IsDir() {
			dirs = append(dirs, in)
		}
	}
	paths, err := fototid.Find(c.InDirs...)
	if err != nil {
		return fmt.Errorf("find: %w", err)
	}
	for _, p := range paths {
		dirs = append(dirs, filepath.Dir(p))
	}
	slices.Sort(dirs)
	dirs = slices.Compact(dirs)

	klog.Infof("watching %d dirs ...", len(dirs))
	for _, d := range dirs {
		if err := w.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
	}

	var printMu sync.Mutex
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !fototid.IsImage(event.Name) {
				continue
			}
			if !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)) {
				continue
			}
			klog.Infof("event: %s", event)

			wg.Add(1)
			go func() {
				defer wg.Done()
				sel, err := resolve(ctx, x, c)
				if errors.Is(err, errSuperseded) {
					klog.V(1).Infof("batch superseded by a newer change")
					return
				}
				if err != nil {
					klog.Errorf("resolve failed: %v", err)
					return
				}
				printMu.Lock()
				defer printMu.Unlock()
				if err := output(c, a, sel); err != nil {
					klog.Errorf("print failed: %v", err)
				}
			}()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			klog.Errorf("watch error: %v", err)
		}
	}
}

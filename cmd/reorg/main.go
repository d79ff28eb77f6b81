// reorg reorganizes photos into year/month directories based on when they were taken
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/otiai10/copy"
	"k8s.io/klog/v2"

	"github.com/tstromberg/fototid/pkg/fototid"
)

var (
	dryRun   = flag.Bool("n", false, "dry-run mode, don't move things")
	copyFlag = flag.Bool("copy", false, "copy photos instead of moving them")
	outDir   = flag.String("out", "", "root of the dated tree (default: next to each photo)")
	useExif  = flag.Bool("exiftool", false, "read metadata with exiftool")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if len(flag.Args()) == 0 {
		klog.Exitf("usage: %s [-n] [-copy] [-out dir] <photo or dir> ...", os.Args[0])
	}

	paths, err := fototid.Find(flag.Args()...)
	if err != nil {
		klog.Fatalf("unable to find photos: %v", err)
	}

	var md fototid.MetadataReader = fototid.ExifReader{}
	if *useExif {
		et, err := fototid.NewExiftoolReader()
		if err != nil {
			klog.Fatalf("exiftool: %v", err)
		}
		defer et.Close()
		md = et
	}
	r := fototid.NewResolver(md)

	moved := 0
	for _, p := range paths {
		ts := r.Resolve(p)
		if !ts.Known() {
			klog.Infof("no date for %s", p)
			continue
		}

		root := *outDir
		if root == "" {
			root = filepath.Dir(p)
		}
		t := ts.Time()
		dated := filepath.Join(fmt.Sprintf("%d", t.Year()), fmt.Sprintf("%02d", int(t.Month())))
		if strings.HasSuffix(filepath.Dir(p), dated) {
			klog.V(1).Infof("%s is already in %s", p, dated)
			continue
		}
		dest := filepath.Join(root, dated, filepath.Base(p))
		if _, err := os.Stat(dest); err == nil {
			klog.Warningf("%s already exists, skipping %s", dest, p)
			continue
		}

		klog.Infof("%s -> %s (%s)", p, dest, ts.Source())
		moved++
		if *dryRun {
			continue
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			klog.Fatalf("mkdir: %v", err)
		}
		if *copyFlag {
			err = copy.Copy(p, dest)
		} else {
			err = os.Rename(p, dest)
		}
		if err != nil {
			klog.Errorf("unable to relocate %s: %v", p, err)
		}
	}

	klog.Infof("relocated %d of %d photos", moved, len(paths))
}

package main

import (
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/janelia-flyem/catpub/catpub"
	"github.com/janelia-flyem/catpub/reader"
)

var (
	// Display usage if true.
	showHelp = flag.Bool("help", false, "")

	// Run in verbose mode if true.
	runVerbose = flag.Bool("verbose", false, "")

	neuronName     = flag.String("neuron", "", "")
	volumeName     = flag.String("volume", "", "")
	annotationName = flag.String("annotation", "", "")
	landmarkName   = flag.String("landmark", "", "")
)

const helpMessage = `
catpub-inspect prints a summary of a catpub export directory.

Usage: catpub-inspect [options] <export dir>

	-neuron     =string   Describe the named neuron.
	-volume     =string   Describe the named volume.
	-annotation =string   Describe the named annotation.
	-landmark   =string   List locations of the named landmark.

	-verbose    (flag)    Run in verbose mode.
	-h, -help   (flag)    Show help message
`

func main() {
	flag.BoolVar(showHelp, "h", false, "Show help message")
	flag.Usage = func() {
		fmt.Print(helpMessage)
	}
	flag.Parse()

	if *showHelp || flag.NArg() != 1 {
		flag.Usage()
		os.Exit(0)
	}
	if *runVerbose {
		catpub.SetLogMode(catpub.DebugMode)
	}

	r, err := reader.Open(flag.Arg(0))
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}

	w := os.Stdout
	switch {
	case *neuronName != "":
		err = describeNeuron(w, r, *neuronName)
	case *volumeName != "":
		err = describeVolume(w, r, *volumeName)
	case *annotationName != "":
		err = describeAnnotation(w, r, *annotationName)
	case *landmarkName != "":
		err = describeLandmark(w, r, *landmarkName)
	default:
		err = summarize(w, r)
	}
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}
}

func summarize(w io.Writer, r *reader.DataReader) error {
	size, err := dirSize(r.Dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Export %s (%s)\n", r.Dir, humanize.Bytes(uint64(size)))
	if m := r.Metadata; m != nil {
		fmt.Fprintf(w, "  version:     %s\n", m.Version)
		fmt.Fprintf(w, "  timestamp:   %s\n", m.Timestamp)
		fmt.Fprintf(w, "  config hash: %s\n", m.ConfigHash)
		fmt.Fprintf(w, "  source:      %s project %d\n", m.Server, m.ProjectID)
		fmt.Fprintf(w, "  units:       %s\n", m.Units)
		if m.Citation.DOI != "" {
			fmt.Fprintf(w, "  DOI:         %s\n", m.Citation.DOI)
		}
	}
	if r.Landmarks != nil {
		fmt.Fprintf(w, "Landmarks: %d locations, %s landmarks, %s groups\n",
			len(r.Landmarks.Locations()),
			humanize.Comma(int64(len(r.Landmarks.LandmarkNames()))),
			humanize.Comma(int64(len(r.Landmarks.GroupNames()))))
	}
	if r.Volumes != nil {
		fmt.Fprintf(w, "Volumes: %s\n", strings.Join(r.Volumes.Names(), ", "))
	}
	if r.Annotations != nil {
		fmt.Fprintf(w, "Annotations: %s\n", humanize.Comma(int64(len(r.Annotations.Names()))))
	}
	if r.Neurons != nil {
		ids, err := r.Neurons.IDs()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Neurons: %s\n", humanize.Comma(int64(len(ids))))
	}
	return nil
}

func describeNeuron(w io.Writer, r *reader.DataReader, name string) error {
	if r.Neurons == nil {
		return fmt.Errorf("no neurons in export")
	}
	nrn, err := r.Neurons.ByName(name)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Neuron %q (skeleton %d)\n", nrn.Name, nrn.ID)
	fmt.Fprintf(w, "  nodes:        %s\n", humanize.Comma(int64(len(nrn.Nodes))))
	fmt.Fprintf(w, "  roots:        %v\n", nrn.Root())
	if nrn.SomaID != nil {
		fmt.Fprintf(w, "  soma:         %d\n", *nrn.SomaID)
	}
	fmt.Fprintf(w, "  cable length: %s %s\n", humanize.Commaf(nrn.CableLength()), nrn.Units)
	fmt.Fprintf(w, "  inputs:       %d\n", len(nrn.Inputs()))
	fmt.Fprintf(w, "  outputs:      %d\n", len(nrn.Outputs()))
	fmt.Fprintf(w, "  annotations:  %s\n", strings.Join(nrn.Annotations, ", "))
	for _, tag := range catpub.SortedKeys(nrn.Tags) {
		fmt.Fprintf(w, "  tag %q: %d nodes\n", tag, len(nrn.Tags[tag]))
	}
	return nil
}

func describeVolume(w io.Writer, r *reader.DataReader, name string) error {
	if r.Volumes == nil {
		return fmt.Errorf("no volumes in export")
	}
	vol, err := r.Volumes.ByName(name)
	if err != nil {
		return err
	}
	min, max := vol.Bounds()
	fmt.Fprintf(w, "Volume %q (id %d)\n", vol.Name, vol.ID)
	fmt.Fprintf(w, "  vertices: %s\n", humanize.Comma(int64(len(vol.Vertices))))
	fmt.Fprintf(w, "  faces:    %s\n", humanize.Comma(int64(len(vol.Faces))))
	fmt.Fprintf(w, "  bounds:   %s to %s\n", min, max)
	return nil
}

func describeAnnotation(w io.Writer, r *reader.DataReader, name string) error {
	g, err := r.FullAnnotationGraph()
	if err != nil {
		return err
	}
	if !g.HasNode(name) {
		return fmt.Errorf("annotation %q: %w", name, catpub.ErrNotFound)
	}
	var subs, neurons []string
	for _, s := range g.Successors(name) {
		if t, _ := g.Type(s); t == catpub.NeuronNode {
			neurons = append(neurons, s)
		} else {
			subs = append(subs, s)
		}
	}
	fmt.Fprintf(w, "Annotation %q\n", name)
	fmt.Fprintf(w, "  annotated by:    %s\n", strings.Join(g.Predecessors(name), ", "))
	fmt.Fprintf(w, "  sub-annotations: %s\n", strings.Join(subs, ", "))
	fmt.Fprintf(w, "  neurons:         %s\n", strings.Join(neurons, ", "))
	return nil
}

func describeLandmark(w io.Writer, r *reader.DataReader, name string) error {
	if r.Landmarks == nil {
		return fmt.Errorf("no landmarks in export")
	}
	locs, err := r.Landmarks.LandmarkLocations(name)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Landmark %q: %d locations\n", name, len(locs))
	for _, loc := range locs {
		fmt.Fprintf(w, "  %s\n", loc)
	}
	return nil
}

func dirSize(dir string) (int64, error) {
	var size int64
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		size += fi.Size()
		return nil
	})
	return size, err
}

// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"runtime/debug"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/mlnoga/dustlos/internal/chain"
	"github.com/mlnoga/dustlos/internal/density"
	"github.com/mlnoga/dustlos/internal/discrete"
	"github.com/mlnoga/dustlos/internal/grid"
	"github.com/mlnoga/dustlos/internal/image"
	"github.com/mlnoga/dustlos/internal/log"
	"github.com/mlnoga/dustlos/internal/prior"
	"github.com/mlnoga/dustlos/internal/rest"
)

const version = "0.1.0"

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")

var in  = flag.String("in", "", "load per-star posterior images from JSON `file`")
var out = flag.String("out", "chain.json", "save the saved posterior chain to `file`")
var logFile = flag.String("log", "%auto", "save log output to `file`. `%auto` replaces suffix of out with .log")

var eMin  = flag.Float64("eMin", 0, "grid minimum log(DeltaE)")
var eMax  = flag.Float64("eMax", 10, "grid maximum log(DeltaE)")
var eBins = flag.Int64("eBins", 400, "number of E-axis bins")
var muMin = flag.Float64("muMin", 4, "grid minimum distance modulus")
var muMax = flag.Float64("muMax", 19, "grid maximum distance modulus")
var nDists = flag.Int64("nDists", 30, "number of distance bins")

var nSwaps   = flag.Int64("nSwaps", 20000, "number of parallel-tempering swap iterations")
var nTemps   = flag.Int64("nTemps", 4, "number of rungs in the parallel-tempering ladder")
var betaSpacingGeometric = flag.Bool("betaSpacingGeometric", false, "space the PT ladder's inverse temperatures geometrically instead of linearly")
var updatesPerSwap = flag.Int64("updatesPerSwap", 1, "neighbor-Gibbs-then-central mini-cycles run per temperature per swap iteration")
var centralStepsPerUpdate = flag.Int64("centralStepsPerUpdate", 20, "central-move proposals per mini-cycle, as a multiple of n_dists")
var neighborStepsPerUpdate = flag.Int64("neighborStepsPerUpdate", 0, "Gibbs sweeps per mini-cycle; 0 disables neighbor coupling")
var logShiftWeightMin = flag.Float64("logShiftWeightMin", math.Inf(-1), "log neighbor-coupling weight at the hottest rung (-Inf disables coupling)")
var logShiftWeightMax = flag.Float64("logShiftWeightMax", math.Inf(-1), "log neighbor-coupling weight at the coldest rung (-Inf disables coupling)")
var shiftWeightLadderLog = flag.Bool("shiftWeightLadderLogarithmic", false, "interpolate the shift-weight ladder in log-space rather than linear")
var burninFrac = flag.Float64("burninFrac", discrete.BurnInFrac, "fraction of swap iterations discarded as burn-in")
var saveAllTemperatures = flag.Bool("saveAllTemperatures", false, "save every ladder rung's chain, not just the cold chain")
var pBadStar = flag.Float64("pBadStar", 0, "per-star outlier-contamination probability (plumbed through, not yet likelihood-active)")
var saveEvery = flag.Int64("saveEvery", 10, "save a cold-chain sample every this many swap iterations, after burn-in")
var chainCapacity = flag.Int64("chainCapacity", 4000, "maximum number of saved posterior samples")

var sigma0 = flag.Float64("sigma0", 0.5, "log-normal sigma for the Galactic density prior at every distance bin")

var serveRest = flag.Bool("serve", false, "run the status/trigger REST API instead of sampling directly")

func main() {
	logWriter := os.Stdout
	debug.SetGCPercent(20)
	start := time.Now()

	flag.Usage = func() {
		fmt.Fprintf(logWriter, `Dustlos Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (sample|legal|version)

Commands:
  sample  Reconstruct a line-of-sight reddening profile for one pixel
  legal   Show license and attribution information
  version Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *logFile == "%auto" {
		if *out != "" {
			*logFile = strings.TrimSuffix(*out, ".json") + ".log"
		} else {
			*logFile = ""
		}
	}
	if *logFile != "" {
		if err := log.AlsoToFile(*logFile); err != nil {
			log.Fatalf("unable to open logfile '%s'\n", *logFile)
		}
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return
	}

	switch args[0] {
	case "legal":
		fmt.Fprint(logWriter, legal)
	case "version":
		fmt.Fprintf(logWriter, "dustlos version %s\n", version)
	case "sample":
		runSample(logWriter)
	default:
		flag.Usage()
	}

	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			log.Fatal("could not create memory profile: ", err)
		}
		defer f.Close()
		pprof.WriteHeapProfile(f)
	}

	log.Printf("%d: Done after %v\n", os.Getpid(), time.Since(start))
	log.Sync()
}

func runSample(logWriter *os.File) {
	if *serveRest {
		serve()
		return
	}
	if *in == "" {
		log.Fatal("sample requires -in <posterior-images.json>")
	}

	ctx := context.Background()
	stack, err := image.NewImageStack(ctx, image.JSONFileSource{FileName: *in})
	if err != nil {
		log.Fatal("loading posterior images: ", err)
	}
	if int(stack.NMu) != int(*nDists) {
		log.Fatalf("posterior image NMu=%d does not match -nDists=%d\n", stack.NMu, *nDists)
	}

	g := grid.NewRectGrid([2]float64{*eMin, *muMin}, [2]float64{*eMax, *muMax}, [2]int32{int32(*eBins), int32(*nDists)})

	priorParams := prior.Params{
		Grid:  g,
		Model: density.Constant(1.0),
		SigmaOfDist: func(d int) float64 { return *sigma0 },
		FloorLogSigma0: -20, CeilLogSigma0: 20,
		PriorsSubsampling: 4,
	}

	settings := discrete.Settings{
		NTemperatures:          int(*nTemps),
		LogShiftWeightMin:      *logShiftWeightMin,
		LogShiftWeightMax:      *logShiftWeightMax,
		ShiftWeightLadderLogarithmic: *shiftWeightLadderLog,
		UpdatesPerSwap:         int(*updatesPerSwap),
		CentralStepsPerUpdate:  int(*centralStepsPerUpdate),
		NeighborStepsPerUpdate: int(*neighborStepsPerUpdate),
		NSwaps:                 int(*nSwaps),
		BurninFrac:             *burninFrac,
		NSave:                  int(*chainCapacity),
		SaveAllTemperatures:    *saveAllTemperatures,
		PBadStar:               *pBadStar,
	}
	if *betaSpacingGeometric {
		settings.BetaSpacing = discrete.BetaSpacingGeometric
	}
	betas := settings.Betas()
	shiftWeights := settings.ShiftWeights()

	ladder := make([]*discrete.State, *nTemps)
	y0 := discrete.SeedChiSquared(g, int(*nDists), 3, uint64(time.Now().UnixNano()))
	for t := range ladder {
		pr := prior.Build(priorParams, int(*nDists))
		ladder[t] = discrete.NewState(stack, y0, betas[t], shiftWeights[t], discrete.SigmaDyStart, nil, pr)
	}

	runner := discrete.NewRunner(stack, discrete.NewLadder(ladder), settings)
	runner.Stores[0] = chain.New(int(*chainCapacity))
	if *saveAllTemperatures {
		for t := 1; t < len(runner.Stores); t++ {
			runner.Stores[t] = chain.New(int(*chainCapacity))
		}
	}
	runner.SaveEvery = int(*saveEvery)

	log.Printf("Sampling %d swap iterations across %d temperatures...\n", *nSwaps, *nTemps)
	runner.RunSwaps(int(*nSwaps))

	finalPrior := prior.Build(priorParams, int(*nDists))
	discrete.RebuildMarginalWeights(runner.Stores[0], finalPrior)

	if err := saveStore(*out, runner.Stores[0]); err != nil {
		log.Fatal("writing output: ", err)
	}
	log.Printf("Saved %d posterior samples to %s\n", runner.Stores[0].Len(), *out)

	if *saveAllTemperatures {
		for t := 1; t < len(runner.Stores); t++ {
			if runner.Stores[t] == nil {
				continue
			}
			path := fmt.Sprintf("%s.t%d", *out, t)
			if err := saveStore(path, runner.Stores[t]); err != nil {
				log.Fatal("writing per-temperature output: ", err)
			}
			log.Printf("Saved %d posterior samples for rung %d to %s\n", runner.Stores[t].Len(), t, path)
		}
	}
}

// saveStore writes store's accumulated points to path as indented JSON,
// spec.md 6's discrete-los output dataset (one file per saved temperature
// when SaveAllTemperatures is set).
func saveStore(path string, store chain.OutputStore) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(store.All())
}

// idleJob implements rest.Job for a server started with no sampling run in
// progress yet; -serve only exposes status/ping until a real dispatcher
// (internal/workers) is wired to trigger per-pixel runs from an HTTP
// request, which this CLI build does not yet do.
type idleJob struct{}

func (idleJob) Status() (running bool, pixelsDone, pixelsTotal int) { return false, 0, 0 }
func (idleJob) Trigger(filePattern string) error {
	return fmt.Errorf("dustlos: no sampling dispatcher wired in this build")
}
func (idleJob) PixelChain(key chain.Key) *chain.Store { return nil }

func serve() {
	log.Print("Serving status/trigger REST API on :8080\n")
	srv := rest.NewServer(idleJob{})
	if err := srv.Run(); err != nil {
		log.Fatal("rest server: ", err)
	}
}

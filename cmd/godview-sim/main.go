// Command godview-sim drives the named chaos scenarios against the
// deterministic simulation harness and reports pass/fail against each
// scenario's predicate.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/banshee-data/godview/internal/sim"
)

func main() {
	seed := flag.Uint64("seed", 0, "root seed; 0 derives one from the wall clock and logs it for reproducibility")
	scenario := flag.String("scenario", "all", "scenario name to run, \"all\", or \"adhoc\" for a free-form run sized by --agents/--duration")
	seedCount := flag.Uint64("seeds", 1, "number of repeat runs with stepped seeds")
	agentCount := flag.Int("agents", 10, "agent count for --scenario adhoc; ignored by the fixed named scenarios")
	duration := flag.Float64("duration", 60, "run length in seconds for --scenario adhoc; ignored by the fixed named scenarios")
	flag.Parse()

	root := *seed
	if root == 0 {
		root = uint64(time.Now().UnixNano())
		log.Printf("no --seed given, derived seed %d", root)
	}

	if *scenario != "all" && *scenario != "adhoc" {
		if _, ok := sim.All[*scenario]; !ok {
			log.Fatalf("unknown scenario %q", *scenario)
		}
	}

	allPassed := true
	for run := uint64(0); run < *seedCount; run++ {
		runSeed := root + run

		if *scenario == "adhoc" {
			result := sim.AdHoc(runSeed, *agentCount, *duration)
			allPassed = report(runSeed, result) && allPassed
			continue
		}

		names, err := resolveScenarios(*scenario)
		if err != nil {
			log.Fatal(err)
		}
		for _, name := range names {
			result := sim.All[name](runSeed)
			allPassed = report(runSeed, result) && allPassed
		}
	}

	if !allPassed {
		os.Exit(1)
	}
}

func report(seed uint64, result sim.ScenarioResult) bool {
	status := "PASS"
	if !result.Passed {
		status = "FAIL"
	}
	fmt.Printf("[seed %d] %-14s %s: %s\n", seed, result.Name, status, result.Reason)
	return result.Passed
}

func resolveScenarios(name string) ([]string, error) {
	if name == "all" {
		names := make([]string, 0, len(sim.All))
		for n := range sim.All {
			names = append(names, n)
		}
		sort.Strings(names)
		return names, nil
	}
	if _, ok := sim.All[name]; !ok {
		return nil, fmt.Errorf("unknown scenario %q", name)
	}
	return []string{name}, nil
}

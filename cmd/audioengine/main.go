// Command audioengine is an illustrative host for the engine core: it
// wires a Backend and Controller together, opens an output device (or
// runs headless for deterministic offline rendering), and optionally
// dumps the master graph's adjacency for debugging.
package main

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/audioengine/core/internal/arena"
	"github.com/audioengine/core/internal/audiobuf"
	"github.com/audioengine/core/internal/backend"
	"github.com/audioengine/core/internal/controller"
	"github.com/audioengine/core/internal/device"
	"github.com/audioengine/core/internal/enginelog"
	"github.com/audioengine/core/internal/engine"
	"github.com/audioengine/core/internal/graph"
	"github.com/audioengine/core/internal/msclock"
	"github.com/audioengine/core/internal/processor"
	"github.com/audioengine/core/internal/transport"
	"github.com/spf13/pflag"
)

// cliFlags mirrors the teacher's CLIFlags: one struct, one parseFlags,
// generalized from flag to pflag per the engine's configuration story.
type cliFlags struct {
	ConfigPath string
	SampleRate int
	BlockSize  int
	Device     string

	Headless  bool
	Blocks    int
	Expect    string
	DumpGraph bool
}

func parseFlags() cliFlags {
	var f cliFlags
	pflag.StringVar(&f.ConfigPath, "config", "", "path to a YAML or TOML engine config")
	pflag.IntVar(&f.SampleRate, "sample-rate", 0, "override the configured sample rate")
	pflag.IntVar(&f.BlockSize, "block-size", 0, "override the configured block size")
	pflag.StringVar(&f.Device, "device", "", "output device: oto, portaudio, or headless")

	pflag.BoolVar(&f.Headless, "headless", false, "render offline instead of opening a device")
	pflag.IntVar(&f.Blocks, "blocks", 100, "blocks to render in headless mode")
	pflag.StringVar(&f.Expect, "expect", "", "assert the rendered PCM's CRC32 (hex)")
	pflag.BoolVar(&f.DumpGraph, "dump-graph", false, "print the master graph's adjacency matrix and exit")
	pflag.Parse()
	return f
}

func loadConfig(f cliFlags) engine.Config {
	cfg := engine.Default()
	if f.ConfigPath != "" {
		var err error
		switch strings.ToLower(filepath.Ext(f.ConfigPath)) {
		case ".toml":
			cfg, err = engine.LoadTOML(f.ConfigPath)
		default:
			cfg, err = engine.LoadYAML(f.ConfigPath)
		}
		if err != nil {
			log.Fatalf("load config %s: %v", f.ConfigPath, err)
		}
	}
	if f.SampleRate > 0 {
		cfg.SampleRate = f.SampleRate
	}
	if f.BlockSize > 0 {
		cfg.BlockSize = f.BlockSize
	}
	if f.Device != "" {
		cfg.Device = f.Device
	}
	return cfg
}

func main() {
	f := parseFlags()
	cfg := loadConfig(f)

	sr := msclock.NewSampleRate(uint64(cfg.SampleRate))
	a := arena.New[float32](sr)
	g := graph.New[float32](a, cfg.BlockSize, sr)

	cmds := transport.NewCommandQueue[float32](cfg.CommandQueueCapacity)
	status := transport.NewStatusQueue(cfg.StatusQueueCapacity)
	b := backend.New[float32](g, a, sr, msclock.Bpm(cfg.Bpm), cfg.BlockSize, cmds, status)

	logger := enginelog.New()
	ctrl := controller.New[float32](cmds, status, logger)
	logger.EngineStarted(cfg.SampleRate, cfg.BlockSize)

	// Wire a single master bus through the command path, the same way
	// any other host code would, rather than poking the graph directly.
	ctrl.AddNode(processor.NewPassThrough[float32](cfg.MasterChannels))
	b.ProcessCommands()
	ctrl.PollStatus()

	master, ok := firstMirroredNode(ctrl.Mirror())
	if !ok {
		log.Fatal("master bus node did not come back from the backend")
	}
	ctrl.SetOutput(master)
	b.ProcessCommands()
	ctrl.PollStatus()

	ctrl.Start()
	b.ProcessCommands()
	ctrl.PollStatus()

	if f.DumpGraph {
		printAdjacency(g)
		return
	}

	render := func(out *audiobuf.Buffer[float32]) { b.RenderBlock(out) }

	if f.Headless || cfg.Device == "headless" {
		runHeadless(render, cfg, f.Blocks, f.Expect)
		return
	}

	runLive(render, cfg, logger)
}

func firstMirroredNode(m controller.Mirror) (graph.NodeID, bool) {
	nodes := m.Nodes()
	if len(nodes) == 0 {
		return 0, false
	}
	return nodes[0], true
}

func printAdjacency(g *graph.Graph[float32]) {
	adj := g.DebugAdjacency()
	ids := g.NodeIDs()
	for i, row := range adj {
		bits := make([]string, len(row))
		for j, v := range row {
			if v {
				bits[j] = "1"
			} else {
				bits[j] = "0"
			}
		}
		fmt.Printf("node %d: %s\n", ids[i], strings.Join(bits, " "))
	}
}

// runHeadless renders blocks blocks offline and reports the
// accumulated PCM's CRC32, the engine's determinism check (identical
// inputs and block count must reproduce identical output bit-for-bit).
func runHeadless(render device.RenderFunc, cfg engine.Config, blocks int, expect string) {
	if blocks <= 0 {
		blocks = 1
	}
	out := audiobuf.WithShape[float32](cfg.MasterChannels, cfg.BlockSize, msclock.NewSampleRate(uint64(cfg.SampleRate)))
	hasher := crc32.NewIEEE()
	scratch := make([]byte, cfg.MasterChannels*cfg.BlockSize*2)

	for i := 0; i < blocks; i++ {
		render(out)
		n := 0
		for fr := 0; fr < out.Frames(); fr++ {
			for ch := 0; ch < out.Channels(); ch++ {
				v := out.At(ch, fr)
				if v > 1 {
					v = 1
				} else if v < -1 {
					v = -1
				}
				binary.LittleEndian.PutUint16(scratch[n:], uint16(int16(v*32767)))
				n += 2
			}
		}
		hasher.Write(scratch[:n])
	}

	got := hasher.Sum32()
	log.Printf("headless: blocks=%d sample_rate=%d block_size=%d pcm_crc32=%08x", blocks, cfg.SampleRate, cfg.BlockSize, got)

	if expect != "" {
		want := strings.TrimPrefix(strings.ToLower(expect), "0x")
		gotHex := fmt.Sprintf("%08x", got)
		if gotHex != want {
			log.Fatalf("checksum mismatch: got %s, want %s", gotHex, want)
		}
	}
}

func runLive(render device.RenderFunc, cfg engine.Config, logger *enginelog.Logger) {
	var drv device.Driver
	var err error
	switch cfg.Device {
	case "portaudio":
		drv, err = device.NewPortAudioDriver(float64(cfg.SampleRate), cfg.MasterChannels, cfg.BlockSize, render, logger)
	default:
		drv, err = device.NewOtoDriver(cfg.SampleRate, cfg.MasterChannels, cfg.BlockSize, render, logger)
	}
	if err != nil {
		log.Fatalf("open device: %v", err)
	}
	if err := drv.Start(); err != nil {
		log.Fatalf("start device: %v", err)
	}
	logger.DeviceOpened(drv.Name())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	if err := drv.Close(); err != nil {
		log.Printf("close device: %v", err)
	}
	logger.DeviceClosed(drv.Name())
}

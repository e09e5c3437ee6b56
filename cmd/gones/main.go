// Package main implements the gones NES emulator executable.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gones/internal/app"
	"gones/internal/version"
)

func main() {
	var (
		romFile    = flag.String("rom", "", "Path to NES ROM file (optional for GUI mode)")
		configFile = flag.String("config", "", "Path to configuration file")
		debug      = flag.Bool("debug", false, "Enable debug logging")
		nogui      = flag.Bool("nogui", false, "Run without GUI (headless mode)")
		frames     = flag.Int("frames", 120, "Number of frames to run in headless mode")
		dumpFrame  = flag.String("dump", "", "In headless mode, write the last frame as a PNG to this path")
		help       = flag.Bool("help", false, "Show help message")
		showVer    = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *help {
		printUsage()
		os.Exit(0)
	}
	if *showVer {
		version.PrintBuildInfo()
		os.Exit(0)
	}

	setupGracefulShutdown()

	fmt.Println("gones - Go NES Emulator starting...")

	configPath := *configFile
	if configPath == "" {
		configPath = app.GetDefaultConfigPath()
	}

	application, err := app.NewApplicationWithMode(configPath, *nogui)
	if err != nil {
		log.Fatalf("failed to create application: %v", err)
	}
	if *debug {
		application.GetConfig().Debug.EnableLogging = true
	}
	defer func() {
		if err := application.Cleanup(); err != nil {
			log.Printf("cleanup error: %v", err)
		}
	}()

	if *romFile != "" {
		fmt.Printf("loading ROM: %s\n", *romFile)
		if err := application.LoadROM(*romFile); err != nil {
			log.Fatalf("failed to load ROM: %v", err)
		}
	}

	if *nogui {
		if *romFile == "" {
			log.Fatal("a ROM file is required for headless mode")
		}
		runHeadlessMode(application, *frames, *dumpFrame)
	} else {
		if err := runGUIMode(application); err != nil {
			log.Fatalf("GUI mode failed: %v", err)
		}
	}

	fmt.Println("emulator shutting down")
}

// runGUIMode opens the interactive window and blocks until it is closed.
func runGUIMode(application *app.Application) error {
	config := application.GetConfig()
	w, h := config.GetWindowResolution()
	fmt.Printf("window: %dx%d (scale %dx)\n", w, h, config.Window.Scale)
	fmt.Printf("audio: %d Hz, %.0f%% volume\n", config.Audio.SampleRate, config.Audio.Volume*100)

	return application.Run()
}

// runHeadlessMode advances the console by nFrames without a window,
// optionally dumping the final frame to a PNG at dumpPath.
func runHeadlessMode(application *app.Application, nFrames int, dumpPath string) {
	fmt.Printf("running %d frames headless...\n", nFrames)

	// When dumping, the last of the nFrames is produced by DumpPNG itself.
	runFrames := nFrames
	if dumpPath != "" && runFrames > 0 {
		runFrames--
	}
	seen := 0
	if err := application.RunHeadlessFrames(runFrames, func(frame []byte) {
		seen++
		if seen%30 == 0 {
			fmt.Printf("%d/%d frames complete\n", seen, nFrames)
		}
	}); err != nil {
		log.Fatalf("headless run failed: %v", err)
	}

	if dumpPath != "" {
		if err := application.DumpPNG(1, dumpPath); err != nil {
			log.Printf("failed to dump frame: %v", err)
		} else {
			fmt.Printf("wrote %s\n", dumpPath)
		}
	}
}

func setupGracefulShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Println("\ninterrupt received, shutting down")
		os.Exit(0)
	}()
}

func printUsage() {
	fmt.Println("gones - Go NES Emulator")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  gones [options]                    # Start GUI mode without a ROM")
	fmt.Println("  gones -rom <file> [options]        # Start with a ROM loaded")
	fmt.Println("  gones -nogui -rom <file> [options] # Run headless mode")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("CONTROLS (default):")
	fmt.Println("  Player 1: W/A/S/D, J (A), K (B), Enter (Start), Space (Select)")
	fmt.Println("  Player 2: Arrow keys, N (A), M (B), Right Shift (Start), Right Ctrl (Select)")
	fmt.Println("  P toggles pause")
	fmt.Println()
	fmt.Println("SUPPORTED FORMATS:")
	fmt.Println("  - iNES (.nes), NROM and UxROM mappers")
}

package main

import (
	"context"
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"go2tv.app/castpilot/castadapter"
	"go2tv.app/castpilot/devices"
	"go2tv.app/castpilot/internal/config"
	"go2tv.app/castpilot/internal/desktop"
	"go2tv.app/castpilot/mprisserver"
)

var (
	//go:embed version.txt
	version      string
	nameArg      = flag.String("n", "", "Friendly name of the cast device to control.")
	hostArg      = flag.String("host", "", "Connect to the given device host[:port] and skip discovery.")
	uuidArg      = flag.String("uuid", "", "UUID of the cast device to control.")
	waitArg      = flag.Float64("wait", 0, "Seconds to keep scanning for the device before giving up. 0 scans once.")
	retryWaitArg = flag.Float64("retry-wait", 5, "Seconds between discovery rounds while waiting for the device.")
	lightIconPtr = flag.Bool("light-icon", false, "Use the light fallback icon variant.")
	debugPtr     = flag.Bool("debug", false, "Enable debug logging.")
	listPtr      = flag.Bool("l", false, "List all discovered cast devices.")
	versionPtr   = flag.Bool("version", false, "Print version.")

	ErrNoCombi    = errors.New("can't combine -l with other flags")
	ErrDeviceGone = errors.New("no matching cast device found")
)

const listScanTimeout = 2 * time.Second

type flagResults struct {
	exit bool
}

// settings is the per-run view of the config file with any flags the
// user passed layered on top.
type settings struct {
	deviceName string
	deviceHost string
	deviceUUID string
	lightIcon  bool
	debug      bool
	wait       float64
	retryWait  float64
}

func main() {
	if err := run(); err != nil {
		if errors.Is(err, ErrDeviceGone) {
			fmt.Fprintln(os.Stderr, "No matching cast device found. Is the device powered on?")
			os.Exit(1)
		}

		fmt.Fprintf(os.Stderr, "Encountered error(s): %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	exitCTX, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	flag.Parse()

	flagRes, err := processflags()
	if err != nil {
		return err
	}

	if flagRes.exit {
		return nil
	}

	runcfg, cfgErr := loadSettings()
	applyLogging(runcfg.debug)
	if cfgErr != nil {
		log.Warn().Err(cfgErr).Msg("Failed to load the config file, continuing with flag values only")
	}

	findCTX := exitCTX
	if runcfg.wait > 0 {
		var findCancel context.CancelFunc
		findCTX, findCancel = context.WithTimeout(exitCTX, secondsToDuration(runcfg.wait))
		defer findCancel()
	}

	log.Info().Msg("Looking for the cast device")

	client, err := devices.Find(findCTX, devices.FindOptions{
		Host:      runcfg.deviceHost,
		UUID:      runcfg.deviceUUID,
		Name:      runcfg.deviceName,
		RetryWait: secondsToDuration(runcfg.retryWait),
	})
	if err != nil {
		return fmt.Errorf("run error: %w", err)
	}

	if client == nil {
		return ErrDeviceGone
	}

	if runcfg.debug {
		client.LogOutput = os.Stderr
	}
	defer client.Close()

	lightIconURI, darkIconURI := desktop.InstallIcons()
	desktop.InstallDesktopEntry()

	adapter := castadapter.New(castadapter.Bind(client), castadapter.Options{
		LightIcon:     runcfg.lightIcon,
		LightIconPath: lightIconURI,
		DarkIconPath:  darkIconURI,
	})
	if runcfg.debug {
		adapter.LogOutput = os.Stderr
	}

	server := mprisserver.NewServer(adapter)
	if runcfg.debug {
		server.LogOutput = os.Stderr
	}

	if err := server.Start(); err != nil {
		return fmt.Errorf("run error: %w", err)
	}

	log.Info().
		Str("device", adapter.Name()).
		Str("bus_name", server.BusName()).
		Msg("Cast device published on the session bus")

	<-exitCTX.Done()

	// Stop the cast client first so no late status notification races
	// the bus teardown.
	_ = client.Close()

	return server.Close()
}

// loadSettings merges the config file with the flags. Flags win, the
// file only fills in what the user did not pass.
func loadSettings() (settings, error) {
	s := settings{
		deviceName: *nameArg,
		deviceHost: *hostArg,
		deviceUUID: *uuidArg,
		lightIcon:  *lightIconPtr,
		debug:      *debugPtr,
		wait:       *waitArg,
		retryWait:  *retryWaitArg,
	}

	cfg, err := config.GetAppConfig()
	if err != nil {
		return s, err
	}

	if s.deviceName == "" {
		s.deviceName = cfg.DeviceName
	}

	if s.deviceHost == "" {
		s.deviceHost = cfg.DeviceHost
	}

	if s.deviceUUID == "" {
		s.deviceUUID = cfg.DeviceUUID
	}

	s.lightIcon = s.lightIcon || cfg.LightIcon
	s.debug = s.debug || cfg.Debug

	return s, nil
}

func applyLogging(debug bool) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func listFlagFunction() error {
	flagsEnabled := 0
	flag.Visit(func(*flag.Flag) {
		flagsEnabled++
	})

	if flagsEnabled > 1 {
		return ErrNoCombi
	}

	deviceList := devices.Discover(listScanTimeout)
	if len(deviceList) == 0 {
		fmt.Println("No cast devices found.")
		return nil
	}

	fmt.Println()

	for q, dev := range deviceList {
		boldStart := ""
		boldEnd := ""

		if runtime.GOOS == "linux" {
			boldStart = "\033[1m"
			boldEnd = "\033[0m"
		}
		fmt.Printf("%sDevice %v%s\n", boldStart, q+1, boldEnd)
		fmt.Printf("%s--------%s\n", boldStart, boldEnd)
		fmt.Printf("%sName:%s  %s\n", boldStart, boldEnd, dev.Name)
		fmt.Printf("%sModel:%s %s\n", boldStart, boldEnd, dev.Model)
		fmt.Printf("%sUUID:%s  %s\n", boldStart, boldEnd, dev.UUID)
		fmt.Printf("%sAddr:%s  %s:%d\n", boldStart, boldEnd, dev.Addr, dev.Port)
		fmt.Println()
	}

	return nil
}

func processflags() (*flagResults, error) {
	res := &flagResults{}

	if checkVerflag() {
		res.exit = true
		return res, nil
	}

	list, err := checkLflag()
	if err != nil {
		return nil, fmt.Errorf("checkflags error: %w", err)
	}

	if list {
		res.exit = true
		return res, nil
	}

	if err := checkWaitflags(); err != nil {
		return nil, fmt.Errorf("checkflags error: %w", err)
	}

	if err := checkHostflag(); err != nil {
		return nil, fmt.Errorf("checkflags error: %w", err)
	}

	return res, nil
}

func checkWaitflags() error {
	if *waitArg < 0 || *retryWaitArg < 0 {
		return errors.New("checkWaitflags error: wait values can't be negative")
	}

	return nil
}

func checkHostflag() error {
	if *hostArg == "" {
		return nil
	}

	if strings.Contains(*hostArg, "://") {
		return errors.New("checkHostflag error: -host takes a bare host[:port], not a URL")
	}

	return nil
}

func checkLflag() (bool, error) {
	if *listPtr {
		if err := listFlagFunction(); err != nil {
			return false, fmt.Errorf("checkLflag error: %w", err)
		}
		return true, nil
	}

	return false, nil
}

func checkVerflag() bool {
	if *versionPtr {
		fmt.Printf("Castpilot Version: %s\n", strings.TrimSpace(version))
		return true
	}
	return false
}

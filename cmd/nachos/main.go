// Command nachos is the CLI harness around the scheduler and filesystem
// cores: disk formatting, host-to-virtual-disk copy, directory
// management, and a scheduler demo that runs the literal end-to-end
// scenarios from the scheduling design. It stands in for the simulated
// MIPS machine's user-program entry points and build/CLI harness, both of
// which are out of this module's scope — this is just the part of that
// harness that drives the filesystem and scheduler cores directly.
package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"

	"github.com/nachos-go/nachos/fs"
	"github.com/nachos-go/nachos/kernel/config"
	"github.com/nachos-go/nachos/kernel/klog"
	"github.com/nachos-go/nachos/schedsim"
)

func main() {
	app := &cli.App{
		Name:  "nachos",
		Usage: "scheduler and filesystem core harness",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "disk",
				Usage: "path to the virtual disk image",
				Value: "nachos.dsk",
			},
			&cli.IntFlag{
				Name:  "sectors",
				Usage: "number of sectors on the disk",
				Value: config.DefaultGeometry().NumSectors,
			},
			&cli.IntFlag{
				Name:  "sector-size",
				Usage: "bytes per sector",
				Value: config.DefaultGeometry().SectorSize,
			},
			&cli.IntFlag{
				Name:  "dirents",
				Usage: "fixed directory entry capacity",
				Value: config.DefaultGeometry().NumDirEntries,
			},
			&cli.StringFlag{
				Name:  "d",
				Usage: "debug mask: z=scheduler f=filesystem s=self +=all",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "format",
				Usage: "format a fresh virtual disk",
				Action: func(c *cli.Context) error {
					geo, err := geometryFrom(c)
					if err != nil {
						return err
					}
					dev, err := fs.OpenFileDevice(c.String("disk"), geo.SectorSize, geo.NumSectors, true)
					if err != nil {
						return err
					}
					defer dev.Close()
					_, err = fs.Format(dev, geo, loggerFrom(c))
					return err
				},
			},
			{
				Name:      "cp",
				Usage:     "copy a host file onto the virtual disk",
				ArgsUsage: "<host-path> <virtual-dest>",
				Action: func(c *cli.Context) error {
					if c.Args().Len() != 2 {
						return cli.Exit("cp requires <host-path> <virtual-dest>", 1)
					}
					return withOps(c, func(ops *fs.Ops) error {
						return copyIn(ops, c.Args().Get(0), c.Args().Get(1))
					})
				},
			},
			{
				Name:      "mkdir",
				Usage:     "create a directory",
				ArgsUsage: "<path>",
				Action: func(c *cli.Context) error {
					return withOps(c, func(ops *fs.Ops) error {
						if !ops.CreateDirectory(c.Args().First()) {
							return cli.Exit("mkdir failed", 1)
						}
						return nil
					})
				},
			},
			{
				Name:      "ls",
				Usage:     "list a directory",
				ArgsUsage: "<path>",
				Action: func(c *cli.Context) error {
					return withOps(c, func(ops *fs.Ops) error {
						path := "/"
						if c.Args().Present() {
							path = c.Args().First()
						}
						entries, err := ops.List(path)
						if err != nil {
							return err
						}
						printListing(entries)
						return nil
					})
				},
			},
			{
				Name:      "lr",
				Usage:     "recursively list a directory",
				ArgsUsage: "<path>",
				Action: func(c *cli.Context) error {
					return withOps(c, func(ops *fs.Ops) error {
						path := "/"
						if c.Args().Present() {
							path = c.Args().First()
						}
						lines, err := ops.RecursiveList(path)
						if err != nil {
							return err
						}
						for _, l := range lines {
							fmt.Println(l)
						}
						return nil
					})
				},
			},
			{
				Name:      "rm",
				Usage:     "remove a file or empty directory",
				ArgsUsage: "<path>",
				Action: func(c *cli.Context) error {
					return withOps(c, func(ops *fs.Ops) error {
						if !ops.Remove(c.Args().First()) {
							return cli.Exit("rm failed", 1)
						}
						return nil
					})
				},
			},
			{
				Name:  "p",
				Usage: "print the free-map, the root directory, and each root entry's header",
				Action: func(c *cli.Context) error {
					return withOps(c, func(ops *fs.Ops) error {
						for _, l := range ops.DescribeAll() {
							fmt.Println(l)
						}
						return nil
					})
				},
			},
			{
				Name:  "sched-demo",
				Usage: "run the S1/S2/S3 scheduler scenarios and print the debug trace",
				Action: func(c *cli.Context) error {
					log := klog.New(os.Stdout, klog.ParseMask(orAll(c.String("d"))))
					schedsim.RunS1(log)
					schedsim.RunS2(log)
					schedsim.RunS3(log)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func orAll(mask string) string {
	if mask == "" {
		return "+"
	}
	return mask
}

func geometryFrom(c *cli.Context) (config.Geometry, error) {
	geo := config.Geometry{
		SectorSize:    c.Int("sector-size"),
		NumSectors:    c.Int("sectors"),
		NumDirEntries: c.Int("dirents"),
	}
	if err := geo.Validate(); err != nil {
		return config.Geometry{}, fmt.Errorf("invalid disk geometry: %w", err)
	}
	return geo, nil
}

func loggerFrom(c *cli.Context) *klog.Logger {
	return klog.New(os.Stdout, klog.ParseMask(c.String("d")))
}

// withOps opens the already-formatted disk at the --disk path and runs fn
// against its Ops, closing the underlying device afterward regardless of
// outcome.
func withOps(c *cli.Context, fn func(ops *fs.Ops) error) error {
	geo, err := geometryFrom(c)
	if err != nil {
		return err
	}
	dev, err := fs.OpenFileDevice(c.String("disk"), geo.SectorSize, geo.NumSectors, false)
	if err != nil {
		return fmt.Errorf("open disk (did you run `nachos format` first?): %w", err)
	}
	defer dev.Close()

	ops, err := fs.New(dev, geo, loggerFrom(c))
	if err != nil {
		return err
	}
	return fn(ops)
}

// copyIn streams a host file into a freshly created virtual file of the
// same size, the Go stand-in for Nachos's `nachos -cp` host-file-import.
func copyIn(ops *fs.Ops, hostPath, dest string) error {
	data, err := os.ReadFile(hostPath)
	if err != nil {
		return fmt.Errorf("read host file: %w", err)
	}
	if !ops.Create(dest, len(data)) {
		return cli.Exit("create failed", 1)
	}
	id, err := ops.Open(dest)
	if err != nil {
		return err
	}
	defer ops.Close(id)
	n, err := ops.Write(id, data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return fmt.Errorf("short write: wrote %d of %d bytes", n, len(data))
	}
	return nil
}

func printListing(entries []fs.DirEntry) {
	tbl := table.New("name", "kind", "sector")
	for _, e := range entries {
		kind := "dir"
		if e.IsFile {
			kind = "file"
		}
		tbl.AddRow(e.Name, kind, humanizeSector(e.Sector))
	}
	tbl.WithWriter(os.Stdout).Print()
}

func humanizeSector(sector int) string {
	return humanize.Comma(int64(sector))
}

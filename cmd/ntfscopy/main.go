package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shubham/ntfsresolver/internal/device"
	"github.com/shubham/ntfsresolver/internal/ntfs"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ntfscopy",
		Short: "Copy files off a live NTFS volume by reading the raw device directly",
	}
	root.AddCommand(newCopyCmd(), newDevicesCmd(), newCacheCmd())
	return root
}

func newCopyCmd() *cobra.Command {
	var (
		devicePath  string
		outputDir   string
		recursive   bool
		ignoreCache bool
		cachePath   string
	)

	cmd := &cobra.Command{
		Use:   "copy SOURCE",
		Short: "Copy a path (or wildcard pattern) off a volume, e.g. C:\\Users\\*\\report.docx",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]
			if cachePath == "" {
				cachePath = defaultCachePath()
			}

			opener := singleDeviceOpener(devicePath)
			session, err := ntfs.NewSession(cachePath, ignoreCache, opener)
			if err != nil {
				return fmt.Errorf("opening session: %w", err)
			}
			defer session.Close()

			copied, err := session.Copy(source, outputDir, recursive)
			fmt.Printf("copied %d file(s)\n", copied)
			if err != nil {
				return fmt.Errorf("one or more paths failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&devicePath, "device", "i", "", "raw device or image path backing every drive letter in SOURCE")
	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "destination directory")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "recurse into matched directories")
	cmd.Flags().BoolVar(&ignoreCache, "ignore-cache", false, "resolve every path from scratch instead of consulting the path cache")
	cmd.Flags().StringVar(&cachePath, "cache-file", "", "path cache location (default: "+defaultCachePathDisplay()+")")
	cmd.MarkFlagRequired("device")

	return cmd
}

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List locally attached storage devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := device.List()
			if err != nil {
				return err
			}
			for _, d := range devices {
				fmt.Printf("%-20s %-10s %-8s %s\n", d.Path, d.SizeHuman, d.Filesystem, d.Mountpoint)
			}
			return nil
		},
	}
}

func newCacheCmd() *cobra.Command {
	var cachePath string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the persistent path cache",
	}
	cmd.PersistentFlags().StringVar(&cachePath, "cache-file", "", "path cache location (default: "+defaultCachePathDisplay()+")")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the number of cached path entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cachePath
			if path == "" {
				path = defaultCachePath()
			}
			pc, err := ntfs.LoadPathCache(path, false)
			if err != nil {
				return err
			}
			fmt.Printf("%d cached entries in %s\n", pc.Len(), path)
			return nil
		},
	}

	clear := &cobra.Command{
		Use:   "clear",
		Short: "Delete every entry in the path cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cachePath
			if path == "" {
				path = defaultCachePath()
			}
			pc, err := ntfs.LoadPathCache(path, false)
			if err != nil {
				return err
			}
			pc.Clear()
			return pc.Save()
		},
	}

	cmd.AddCommand(show, clear)
	return cmd
}

// singleDeviceOpener builds an opener that maps every drive letter in a
// pattern to the same explicit device path (the common case for a single
// externally mounted image or raw block device); drive-letter wildcard
// expansion against a live multi-volume host is left to a future opener
// that consults internal/device.List per matched mountpoint.
func singleDeviceOpener(devicePath string) func(byte) (string, error) {
	return func(drive byte) (string, error) {
		if devicePath == "" {
			return "", fmt.Errorf("no device configured for drive %c:", drive)
		}
		return devicePath, nil
	}
}

func defaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ntfscopy-cache"
	}
	return filepath.Join(home, ".cache", "ntfscopy", "pathcache.bin")
}

func defaultCachePathDisplay() string {
	return strings.ReplaceAll(defaultCachePath(), string(os.PathSeparator), "/")
}

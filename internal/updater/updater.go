// Package updater provides self-update functionality for phys-bench.
package updater

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const (
	githubRepo      = "Motphys/phys-bench"
	githubAPIURL    = "https://api.github.com/repos/" + githubRepo + "/releases/latest"
	downloadURL     = "https://github.com/" + githubRepo + "/releases/download"
	binaryName      = "phys-bench"
	checkTimeout    = 10 * time.Second
	downloadTimeout = 5 * time.Minute
)

type githubRelease struct {
	TagName string `json:"tag_name"`
	Name    string `json:"name"`
}

// CheckLatestVersion returns the tag of the newest GitHub release
func CheckLatestVersion() (string, error) {
	client := &http.Client{Timeout: checkTimeout}

	resp, err := client.Get(githubAPIURL)
	if err != nil {
		return "", fmt.Errorf("checking for updates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", fmt.Errorf("parsing release info: %w", err)
	}

	return release.TagName, nil
}

// NeedsUpdate reports whether latest ("vX.Y.Z" or "X.Y.Z") is newer
// than current.
func NeedsUpdate(current, latest string) bool {
	current = strings.TrimPrefix(current, "v")
	latest = strings.TrimPrefix(latest, "v")

	// A "dev" build always takes a real release.
	if current == "dev" {
		return latest != "dev"
	}

	currentParts := parseVersion(current)
	latestParts := parseVersion(latest)

	for i := 0; i < 3; i++ {
		if latestParts[i] > currentParts[i] {
			return true
		}
		if latestParts[i] < currentParts[i] {
			return false
		}
	}
	return false
}

func parseVersion(v string) [3]int {
	var parts [3]int
	fmt.Sscanf(v, "%d.%d.%d", &parts[0], &parts[1], &parts[2])
	return parts
}

// SelfUpdate downloads the release archive for this platform and
// swaps the running binary in place.
func SelfUpdate(targetVersion string) error {
	platform := fmt.Sprintf("%s_%s", runtime.GOOS, runtime.GOARCH)

	// Release archives are named phys-bench_0.2.1_linux_amd64.tar.gz.
	versionNum := strings.TrimPrefix(targetVersion, "v")
	archiveName := fmt.Sprintf("%s_%s_%s.tar.gz", binaryName, versionNum, platform)
	url := fmt.Sprintf("%s/%s/%s", downloadURL, targetVersion, archiveName)

	tmpDir, err := os.MkdirTemp("", "phys-bench-update-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	archivePath := filepath.Join(tmpDir, archiveName)
	if err := downloadFile(url, archivePath); err != nil {
		return fmt.Errorf("downloading update: %w", err)
	}

	newBinaryPath := filepath.Join(tmpDir, binaryName)
	if err := extractTarGz(archivePath, tmpDir, binaryName); err != nil {
		return fmt.Errorf("extracting update: %w", err)
	}

	currentExe, err := os.Executable()
	if err != nil {
		return err
	}
	currentExe, err = filepath.EvalSymlinks(currentExe)
	if err != nil {
		return err
	}

	if err := replaceBinary(currentExe, newBinaryPath); err != nil {
		return fmt.Errorf("installing update: %w", err)
	}
	return nil
}

func downloadFile(url, dest string) error {
	client := &http.Client{Timeout: downloadTimeout}

	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}

// extractTarGz pulls one file out of a tar.gz archive
func extractTarGz(archivePath, destDir, targetFile string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gzr, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		// The binary may be at the archive root or in a subdirectory.
		baseName := filepath.Base(header.Name)
		if baseName == targetFile && header.Typeflag == tar.TypeReg {
			destPath := filepath.Join(destDir, targetFile)
			outFile, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
			if err != nil {
				return err
			}
			defer outFile.Close()

			if _, err := io.Copy(outFile, tr); err != nil {
				return err
			}
			return nil
		}
	}
	return fmt.Errorf("binary %s not found in archive", targetFile)
}

// replaceBinary swaps the new binary into place, restoring the old
// one if the copy fails
func replaceBinary(currentPath, newPath string) error {
	info, err := os.Stat(currentPath)
	if err != nil {
		return err
	}

	backupPath := currentPath + ".old"
	os.Remove(backupPath)

	if err := os.Rename(currentPath, backupPath); err != nil {
		return fmt.Errorf("moving current binary aside: %w", err)
	}

	// Copy rather than rename; the temp dir may be on another filesystem.
	if err := copyFile(newPath, currentPath, info.Mode()); err != nil {
		os.Rename(backupPath, currentPath)
		return err
	}

	os.Remove(backupPath)
	return nil
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

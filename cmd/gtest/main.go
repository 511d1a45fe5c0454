// gtest compiles every gb source matching --test-files and compares the
// produced batch script, the diagnostics and the exit status with the
// golden record stored next to the source as .<file>.json.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
)

type Execution struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
}

// Golden is the recorded outcome of compiling one source file.
type Golden struct {
	SourceHash string    `json:"source_hash"`
	Args       []string  `json:"args,omitempty"`
	Compile    Execution `json:"compile"`
	Script     string    `json:"script"`
}

type FileTestResult struct {
	File    string  `json:"file"`
	Status  string  `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message string  `json:"message,omitempty"`
	Diff    string  `json:"diff,omitempty"`
	Golden  *Golden `json:"golden,omitempty"`
	Target  *Golden `json:"target,omitempty"`
}

type TestSuiteResults map[string]*FileTestResult

var (
	targetCompiler = flag.String("target-compiler", "./gbat", "Path to the compiler to test.")
	targetArgs     = flag.String("target-args", "", "Arguments for the compiler (space-separated).")
	generateGolden = flag.String("generate-golden", "", "Generate golden .json files for the given source files (space-separated).")
	testFiles      = flag.String("test-files", "examples/*.gb", "Glob pattern(s) for files to test (space-separated).")
	skipFiles      = flag.String("skip-files", "", "Files to skip (space-separated).")
	outputJSON     = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	timeout        = flag.Duration("timeout", 5*time.Second, "Timeout for each compiler invocation.")
	jobs           = flag.Int("j", 4, "Number of parallel test jobs.")
	verbose        = flag.Bool("v", false, "Enable verbose logging.")
	jsonDir        = flag.String("dir", "", "Directory to store/read golden JSON files (defaults to source file dir).")
	ignoreLines    = flag.String("ignore-lines", "", "Comma-separated substrings to ignore during output comparison.")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"

	sourcePlaceholder = "__SOURCE__"
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	tempDir, err := os.MkdirTemp("", "gtest-*")
	if err != nil {
		log.Fatalf("%s[ERROR]%s Failed to create temp directory: %v\n", cRed, cNone, err)
	}
	defer os.RemoveAll(tempDir)
	setupInterruptHandler(tempDir)

	if *generateGolden != "" {
		for _, file := range strings.Fields(*generateGolden) {
			handleGenerateGolden(file, tempDir)
		}
		return
	}

	handleRunTestSuite(tempDir)
}

// setupInterruptHandler is used to clean up on CTRL+C
func setupInterruptHandler(tempDir string) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		os.RemoveAll(tempDir)
		fmt.Printf("\n%s[INTERRUPT]%s Test run cancelled. Cleaning up...\n", cYellow, cNone)
		os.Exit(1)
	}()
}

func getJSONPath(sourceFile string) string {
	jsonFileName := "." + filepath.Base(sourceFile) + ".json"
	if *jsonDir != "" {
		return filepath.Join(*jsonDir, jsonFileName)
	}
	return filepath.Join(filepath.Dir(sourceFile), jsonFileName)
}

// hashFile computes the xxhash of a file's content
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}

func handleGenerateGolden(sourceFile, tempDir string) {
	log.Printf("Generating golden file for %s...\n", sourceFile)

	fileHash, err := hashFile(sourceFile)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Could not hash source file %s: %v\n", cRed, cNone, sourceFile, err)
	}

	// Failing compilations are recorded too: the diagnostics are the expectation.
	golden := compile(sourceFile, tempDir, fileHash)

	jsonData, err := json.MarshalIndent(golden, "", "  ")
	if err != nil {
		log.Fatalf("%s[ERROR]%s Failed to marshal golden data to JSON: %v\n", cRed, cNone, err)
	}

	goldenFileName := getJSONPath(sourceFile)
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0755); err != nil {
			log.Fatalf("%s[ERROR]%s Failed to create directory %s: %v\n", cRed, cNone, *jsonDir, err)
		}
	}

	if err := os.WriteFile(goldenFileName, jsonData, 0644); err != nil {
		log.Fatalf("%s[ERROR]%s Failed to write golden file %s: %v\n", cRed, cNone, goldenFileName, err)
	}

	log.Printf("%s[SUCCESS]%s Golden file created at %s\n", cGreen, cNone, goldenFileName)
}

func handleRunTestSuite(tempDir string) {
	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return
	}

	skipList := make(map[string]bool)
	for _, f := range strings.Fields(*skipFiles) {
		skipList[f] = true
		if abs, err := filepath.Abs(f); err == nil {
			skipList[abs] = true
		}
	}

	tasks := make(chan string, len(files))
	resultsChan := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup

	for i := 0; i < max(*jobs, 1); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				resultsChan <- testFile(file, tempDir)
			}
		}()
	}

	// Feed the tasks channel, skipping files with identical content
	seenHashes := make(map[string]string)
	for _, file := range files {
		if skipList[file] {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		fileHash, err := hashFile(file)
		if err != nil {
			resultsChan <- &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to read file for hashing: %v", err)}
			continue
		}
		if originalFile, seen := seenHashes[fileHash]; seen {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: fmt.Sprintf("Content is identical to %s", originalFile)}
			continue
		}
		seenHashes[fileHash] = file
		tasks <- file
	}
	close(tasks)

	wg.Wait()
	close(resultsChan)

	var allResults []*FileTestResult
	for result := range resultsChan {
		allResults = append(allResults, result)
	}

	sort.Slice(allResults, func(i, j int) bool {
		return allResults[i].File < allResults[j].File
	})

	printSummary(allResults)
	resultsMap := writeJSONReport(allResults)

	if hasFailures(resultsMap) {
		os.Exit(1)
	}
}

func testFile(file, tempDir string) *FileTestResult {
	goldenFile := getJSONPath(file)
	goldenData, err := os.ReadFile(goldenFile)
	if err != nil {
		if os.IsNotExist(err) {
			return &FileTestResult{File: file, Status: "SKIP", Message: "Cannot test without a corresponding .json golden file"}
		}
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not read golden file %s: %v", goldenFile, err)}
	}
	var golden Golden
	if err := json.Unmarshal(goldenData, &golden); err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not parse golden file %s: %v", goldenFile, err)}
	}

	fileHash, err := hashFile(file)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: "Failed to hash source file"}
	}
	if golden.SourceHash != fileHash {
		return &FileTestResult{
			File:    file,
			Status:  "FAIL",
			Message: fmt.Sprintf("Golden file is stale (source hash %s, recorded %s); regenerate it with --generate-golden", fileHash, golden.SourceHash),
			Golden:  &golden,
		}
	}

	return compareResults(file, &golden, compile(file, tempDir, fileHash))
}

func compareResults(file string, golden, target *Golden) *FileTestResult {
	var diffs strings.Builder
	failed := false

	ignoredSubstrings := []string{}
	if *ignoreLines != "" {
		ignoredSubstrings = strings.Split(*ignoreLines, ",")
	}

	if target.Compile.TimedOut {
		failed = true
		diffs.WriteString("Compiler timed out.\n")
	}
	if golden.Compile.ExitCode != target.Compile.ExitCode {
		failed = true
		diffs.WriteString(fmt.Sprintf("Exit Code mismatch:\n  - Golden: %d\n  - Target: %d\n", golden.Compile.ExitCode, target.Compile.ExitCode))
	}

	goldenStderr := filterOutput(golden.Compile.Stderr, ignoredSubstrings)
	targetStderr := filterOutput(target.Compile.Stderr, ignoredSubstrings)
	if goldenStderr != targetStderr {
		failed = true
		diffs.WriteString(fmt.Sprintf("Diagnostics mismatch:\n%s", cmp.Diff(goldenStderr, targetStderr)))
	}

	goldenScript := filterOutput(golden.Script, ignoredSubstrings)
	targetScript := filterOutput(target.Script, ignoredSubstrings)
	if goldenScript != targetScript {
		failed = true
		diffs.WriteString(fmt.Sprintf("Script mismatch:\n%s", cmp.Diff(strings.Split(goldenScript, "\n"), strings.Split(targetScript, "\n"))))
	}

	if failed {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Compiler output differs from the golden file", Diff: diffs.String(), Golden: golden, Target: target}
	}
	return &FileTestResult{File: file, Status: "PASS", Message: "Output matches the golden file", Golden: golden, Target: target}
}

// executeCommand runs a command with a timeout and captures its output
func executeCommand(ctx context.Context, command string, args ...string) Execution {
	startTime := time.Now()
	cmd := exec.CommandContext(ctx, command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	execResult := Execution{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(startTime),
	}

	if ctx.Err() == context.DeadlineExceeded {
		execResult.TimedOut = true
		execResult.ExitCode = -1
	} else if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			execResult.ExitCode = exitErr.ExitCode()
		} else {
			execResult.ExitCode = -2
			execResult.Stderr += "\nExecution error: " + err.Error()
		}
	}
	return execResult
}

// compile runs the compiler on sourceFile and collects the script it wrote.
// Diagnostics name the source by path, which is replaced by a placeholder
// so goldens do not depend on where the tree is checked out.
func compile(sourceFile, tempDir, name string) *Golden {
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	scriptPath := filepath.Join(tempDir, name+".bat")
	args := append([]string{"-o", scriptPath}, strings.Fields(*targetArgs)...)
	args = append(args, sourceFile)

	result := &Golden{Args: strings.Fields(*targetArgs)}
	result.SourceHash = name
	result.Compile = executeCommand(ctx, *targetCompiler, args...)
	result.Compile.Stderr = strings.ReplaceAll(result.Compile.Stderr, sourceFile, sourcePlaceholder)
	result.Compile.Stderr = strings.ReplaceAll(result.Compile.Stderr, filepath.Base(sourceFile), sourcePlaceholder)

	if result.Compile.ExitCode == 0 && !result.Compile.TimedOut {
		if script, err := os.ReadFile(scriptPath); err == nil {
			result.Script = string(script)
		} else {
			result.Compile.Stderr += "\ngtest: compiler succeeded but wrote no script: " + err.Error()
		}
		os.Remove(scriptPath)
	}
	if *verbose {
		log.Printf("[%s] compiled in %s (exit %d)", sourceFile, result.Compile.Duration, result.Compile.ExitCode)
	}
	return result
}

// filterOutput removes lines containing any of the given substrings
func filterOutput(output string, ignoredSubstrings []string) string {
	if len(ignoredSubstrings) == 0 || output == "" {
		return output
	}
	lines := strings.Split(output, "\n")
	filteredLines := make([]string, 0, len(lines))
	for _, line := range lines {
		ignore := false
		for _, sub := range ignoredSubstrings {
			if sub != "" && strings.Contains(line, sub) {
				ignore = true
				break
			}
		}
		if !ignore {
			filteredLines = append(filteredLines, line)
		}
	}
	return strings.Join(filteredLines, "\n")
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%6dµs", d.Microseconds())
	}
	return fmt.Sprintf("%6dms", d.Milliseconds())
}

func printSummary(results []*FileTestResult) {
	var passed, failed, skipped, errored int
	var totalCompile time.Duration
	var compiled int

	for _, result := range results {
		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("Testing %s%s%s...\n", cCyan, result.File, cNone)

		switch result.Status {
		case "PASS":
			passed++
			fmt.Printf("  [%sPASS%s] %s\n", cGreen, cNone, result.Message)
		case "FAIL":
			failed++
			fmt.Printf("  [%sFAIL%s] %s\n", cRed, cNone, result.Message)
			fmt.Println(formatDiff(result.Diff))
		case "SKIP":
			skipped++
			fmt.Printf("  [%sSKIP%s] %s\n", cYellow, cNone, result.Message)
		case "ERROR":
			errored++
			fmt.Printf("  [%sERROR%s] %s\n", cRed, cNone, result.Message)
		}

		if result.Target != nil {
			compiled++
			totalCompile += result.Target.Compile.Duration
			if *verbose {
				fmt.Printf("  compile: %s\n", formatDuration(result.Target.Compile.Duration))
			}
		}
	}

	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Total\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results))
	if compiled > 0 {
		fmt.Printf("Average compile time of %s%s%s: %s\n", cBold, filepath.Base(*targetCompiler), cNone,
			strings.TrimSpace(formatDuration(totalCompile/time.Duration(compiled))))
	}
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var builder strings.Builder
	builder.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmedLine := strings.TrimSpace(line)
		if strings.HasPrefix(trimmedLine, "-") {
			builder.WriteString(cRed)
		} else if strings.HasPrefix(trimmedLine, "+") {
			builder.WriteString(cGreen)
		}
		builder.WriteString("    " + line)
		builder.WriteString(cNone)
		builder.WriteString("\n")
	}
	return builder.String()
}

func writeJSONReport(results []*FileTestResult) TestSuiteResults {
	resultsMap := make(TestSuiteResults, len(results))
	for _, r := range results {
		resultsMap[r.File] = r
	}

	jsonData, err := json.MarshalIndent(resultsMap, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v\n", cRed, cNone, err)
		return resultsMap
	}

	outputFile := *outputJSON
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0755); err != nil {
			log.Printf("%s[ERROR]%s Failed to create dir %s: %v\n", cRed, cNone, *jsonDir, err)
		}
		outputFile = filepath.Join(*jsonDir, *outputJSON)
	}

	if err := os.WriteFile(outputFile, jsonData, 0644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, outputFile, err)
	} else {
		fmt.Printf("Full test report saved to %s\n", outputFile)
	}
	return resultsMap
}

func hasFailures(results TestSuiteResults) bool {
	for _, result := range results {
		if result.Status == "FAIL" || result.Status == "ERROR" {
			return true
		}
	}
	return false
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range files {
			absFile, err := filepath.Abs(file)
			if err != nil {
				continue
			}
			if !seen[absFile] {
				if info, err := os.Stat(absFile); err == nil && info.Mode().IsRegular() {
					allFiles = append(allFiles, absFile)
					seen[absFile] = true
				}
			}
		}
	}
	return allFiles, nil
}

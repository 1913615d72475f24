package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/patchforge/patchforge/internal/config"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Interactive setup wizard (with OS keychain support)",
	Long: `Walk through PatchForge configuration step-by-step.

This will configure:
1. OpenAI API key for optional enrichment (stored in OS keychain)
2. GitHub token for pull-request diff sources (stored in OS keychain)
3. Target patch size and output directory (stored in config file)`,
	RunE: runConfigure,
}

func runConfigure(cmd *cobra.Command, args []string) error {
	fmt.Println("PatchForge configuration")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	km := config.NewKeyringManager()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}
	configPath := filepath.Join(homeDir, ".patchforge", "config.yaml")
	loadedCfg, err := config.Load(configPath)
	if err != nil {
		loadedCfg = config.Default()
	}

	// Step 1: OpenAI API key
	fmt.Println("Step 1/3: OpenAI API key (optional, enables LLM enrichment)")
	fmt.Print("Enter API key, or press enter to skip: ")
	apiKey, err := readSecret(reader)
	if err != nil {
		return err
	}
	if apiKey != "" {
		if err := km.SaveAPIKey(apiKey); err != nil {
			fmt.Printf("Keychain unavailable (%v); storing in config file instead.\n", err)
			loadedCfg.Enrichment.APIKey = apiKey
		} else {
			fmt.Println("API key stored in OS keychain.")
		}
		loadedCfg.Enrichment.Enabled = true
	}
	fmt.Println()

	// Step 2: GitHub token
	fmt.Println("Step 2/3: GitHub token (optional, for 'pforge split --pr')")
	fmt.Print("Enter token, or press enter to skip: ")
	token, err := readSecret(reader)
	if err != nil {
		return err
	}
	if token != "" {
		if err := km.SaveGitHubToken(token); err != nil {
			fmt.Printf("Keychain unavailable (%v); storing in config file instead.\n", err)
			loadedCfg.GitHub.Token = token
		} else {
			fmt.Println("GitHub token stored in OS keychain.")
		}
	}
	fmt.Println()

	// Step 3: split defaults
	fmt.Println("Step 3/3: Split defaults")
	fmt.Printf("Target changed lines per patch [%d]: ", loadedCfg.Split.TargetSize)
	if line, _ := reader.ReadString('\n'); strings.TrimSpace(line) != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(line)); err == nil && n > 0 {
			loadedCfg.Split.TargetSize = n
		}
	}
	fmt.Printf("Output directory [%s]: ", loadedCfg.Output.Dir)
	if line, _ := reader.ReadString('\n'); strings.TrimSpace(line) != "" {
		loadedCfg.Output.Dir = strings.TrimSpace(line)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(loadedCfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("\nConfiguration written to %s\n", configPath)
	return nil
}

// readSecret hides input when stdin is a terminal, falls back to a plain
// line read otherwise (pipes, CI).
func readSecret(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		data, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	}
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", nil
	}
	return strings.TrimSpace(line), nil
}

// cmd/tools/registry-updater/main.go
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"candidate-interview/internal/models"
	"candidate-interview/pkg/registry"

	"github.com/spf13/pflag"
)

var registryPath string

func main() {
	setCmd := pflag.NewFlagSet("set", pflag.ExitOnError)
	validateCmd := pflag.NewFlagSet("validate", pflag.ExitOnError)
	showCmd := pflag.NewFlagSet("show", pflag.ExitOnError)

	for _, fs := range []*pflag.FlagSet{setCmd, validateCmd, showCmd} {
		fs.StringVar(&registryPath, "path", "configs/stage-registry.json", "Path to the stage registry override")
	}

	// Set command flags
	id := setCmd.String("id", "", "Stage ID (e.g., coding)")
	field := setCmd.String("field", "", "Field to update (displayName, description, estimatedMinutes)")
	value := setCmd.String("value", "", "New value for the field")

	// Show command flags
	quiz := showCmd.Bool("quiz", false, "Plan includes the quiz")
	coding := showCmd.Bool("coding", false, "Plan includes the coding challenge")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "set":
		setCmd.Parse(os.Args[2:])
		if *id == "" || *field == "" || *value == "" {
			fmt.Println("Error: id, field, and value are required for set.")
			setCmd.Usage()
			os.Exit(1)
		}
		if err := setField(*id, *field, *value); err != nil {
			fmt.Printf("Error updating stage: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated stage %s, field %s to %s\n", *id, *field, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		if _, err := registry.LoadRegistry(registryPath); err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Registry validation passed.")

	case "show":
		showCmd.Parse(os.Args[2:])
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil && !os.IsNotExist(err) {
			fmt.Printf("Error loading registry: %v\n", err)
			os.Exit(1)
		}
		if reg == nil {
			reg = registry.Default()
		}
		show(reg, *quiz, *coding)

	case "help":
		fallthrough
	default:
		help()
	}
}

func setField(id, field, value string) error {
	if _, ok := models.ParseStage(id); !ok {
		return fmt.Errorf("unknown stage %q", id)
	}
	reg, err := registry.ReadOverride(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	idx := -1
	for i := range reg.Stages {
		if reg.Stages[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		reg.Stages = append(reg.Stages, registry.StageInfo{ID: id})
		idx = len(reg.Stages) - 1
	}

	switch field {
	case "displayName":
		reg.Stages[idx].DisplayName = value
	case "description":
		reg.Stages[idx].Description = value
	case "estimatedMinutes":
		minutes, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid estimatedMinutes value: %w", err)
		}
		reg.Stages[idx].EstimatedMinutes = minutes
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	reg.LastUpdated = time.Now().Format(time.RFC3339)
	return registry.SaveOverride(reg, registryPath)
}

func show(reg *registry.StageRegistry, quiz, coding bool) {
	plan := []models.Stage{models.StageResumeIntake, models.StageIdentityVerification}
	if quiz {
		plan = append(plan, models.StageQuiz)
	}
	if coding {
		plan = append(plan, models.StageCoding)
	}
	plan = append(plan, models.StageVideoInterview, models.StageCompletion)

	for _, stage := range plan {
		info, _ := reg.Lookup(stage)
		fmt.Printf("%-22s %-20s %3d min  %s\n", info.ID, info.DisplayName, info.EstimatedMinutes, info.Description)
	}
	fmt.Printf("Total: about %d minutes\n", reg.EstimatedMinutes(plan))
}

func help() {
	fmt.Println(`Stage Registry Updater

Usage:
  registry-updater <command> [options]

Commands:
  set       Set one field of a stage in the override file
  validate  Validate the override file against the known stages
  show      Print the catalog for a plan
  help      Show this help message

Examples:
  registry-updater set --id coding --field estimatedMinutes --value 45
  registry-updater validate --path configs/stage-registry.json
  registry-updater show --quiz --coding`)
}

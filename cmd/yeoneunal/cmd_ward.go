package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"yeoneunal/internal/api"
	"yeoneunal/internal/session"
	"yeoneunal/internal/ward"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	wardName         string
	wardGender       string
	wardBirthDate    string
	wardRelationship string
	wardPhone        string
	wardAnswers      string
)

// wardCmd groups ward commands
var wardCmd = &cobra.Command{
	Use:   "ward",
	Short: "Register, list and select wards",
}

var wardRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a ward and make them the active ward",
	Long: `Validates the registration, derives the age from the birth date and
creates the ward. The new ward becomes the active ward for later commands.

Example:
  yeoneunal ward register --name 김영희 --gender female \
    --birth-date 1950-05-05 --relationship parent --answers 0,1,2,3,4`,
	Args: cobra.NoArgs,
	RunE: runWardRegister,
}

var wardListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the guardian's wards",
	Args:  cobra.NoArgs,
	RunE:  runWardList,
}

var wardShowCmd = &cobra.Command{
	Use:   "show [wardId]",
	Short: "Show a ward (default: the active ward)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWardShow,
}

var wardSelectCmd = &cobra.Command{
	Use:   "select <wardId>",
	Short: "Make a ward the active ward",
	Args:  cobra.ExactArgs(1),
	RunE:  runWardSelect,
}

func init() {
	f := wardRegisterCmd.Flags()
	f.StringVar(&wardName, "name", "", "Ward name (required)")
	f.StringVar(&wardGender, "gender", "", "male or female (required)")
	f.StringVar(&wardBirthDate, "birth-date", "", "Birth date YYYY-MM-DD (required)")
	f.StringVar(&wardRelationship, "relationship", "", "parent, grandparent, spouse, relative or other (required)")
	f.StringVar(&wardPhone, "phone", "", "Ward phone number")
	f.StringVar(&wardAnswers, "answers", "", "Initial survey answers, comma separated 0-4 (5 to 20 values)")

	wardCmd.AddCommand(wardRegisterCmd)
	wardCmd.AddCommand(wardListCmd)
	wardCmd.AddCommand(wardShowCmd)
	wardCmd.AddCommand(wardSelectCmd)
	rootCmd.AddCommand(wardCmd)
}

func runWardRegister(cmd *cobra.Command, args []string) error {
	reg := ward.Registration{
		Name:         wardName,
		Gender:       wardGender,
		BirthDate:    wardBirthDate,
		Relationship: wardRelationship,
		Phone:        wardPhone,
	}

	var answers []int
	diagnosis := api.DiagnosisPayload{Schema: api.DiagnosisSchema(cfg.Diagnosis.Schema)}
	if wardAnswers != "" {
		var err error
		if answers, err = parseAnswers(wardAnswers); err != nil {
			return err
		}
		questions, err := ward.Questionnaire(len(answers))
		if err != nil {
			return err
		}
		if diagnosis, err = ward.BuildDiagnosis(diagnosis.Schema, questions, answers); err != nil {
			return err
		}
	}

	now := time.Now()
	in, err := ward.NewWardInput(guardianID(), reg, diagnosis, now)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	id, err := newClient().CreateWard(ctx, in)
	if err != nil {
		return fail("ward registration", err)
	}
	logger.Info("Ward registered", zap.Int64("ward_id", id), zap.Int("age", in.Age))

	if err := sess.SelectWard(id, in.Name); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if answers != nil {
		if err := sess.SetSurveyAnswers(answers); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
	}
	if err := sess.SetWardProfile(session.Profile{
		Name:         in.Name,
		Gender:       in.Gender,
		BirthDate:    reg.BirthDate,
		Relationship: in.Relationship,
		Phone:        in.Phone,
		Age:          in.Age,
	}); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("Registered %s (ward %d, age %d)", in.Name, id, in.Age)))
	return nil
}

func runWardList(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	gid := guardianID()
	wards, err := newClient().ListWards(ctx, gid)
	if err != nil {
		return fail("ward list", err)
	}

	out := cmd.OutOrStdout()
	if len(wards) == 0 {
		fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("No wards registered for guardian %d.", gid)))
		return nil
	}
	active, _ := sess.WardID()
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Wards of guardian %d", gid)))
	for _, w := range wards {
		marker := "  "
		if w.ID == active {
			marker = "* "
		}
		fmt.Fprintf(out, "%s%-6d %s %s\n", marker, w.ID, w.Name, mutedStyle.Render(describeWard(w)))
	}
	return nil
}

func runWardShow(cmd *cobra.Command, args []string) error {
	id, err := wardArg(args)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	w, err := newClient().GetWard(ctx, id)
	if err != nil {
		return fail("ward lookup", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render(w.Name))
	fmt.Fprintln(out, field("id", strconv.FormatInt(w.ID, 10)))
	fmt.Fprintln(out, field("gender", w.Gender))
	if w.Age > 0 {
		fmt.Fprintln(out, field("age", strconv.Itoa(w.Age)))
	}
	if w.BirthDate != "" {
		fmt.Fprintln(out, field("birth date", w.BirthDate))
	}
	fmt.Fprintln(out, field("relationship", w.Relationship))
	if w.Phone != "" {
		fmt.Fprintln(out, field("phone", w.Phone))
	}
	if len(w.Diagnosis.Items) > 0 {
		fmt.Fprintln(out, headingStyle.Render("Self-diagnosis"))
		for i, item := range w.Diagnosis.Items {
			fmt.Fprintf(out, "%2d. %s %s\n", i+1, item.Text, mutedStyle.Render("("+ward.ScaleLabel(item.Answer)+")"))
		}
	}
	return nil
}

func runWardSelect(cmd *cobra.Command, args []string) error {
	id, err := wardArg(args)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	w, err := newClient().GetWard(ctx, id)
	if err != nil {
		return fail("ward lookup", err)
	}
	if err := sess.SelectWard(w.ID, w.Name); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if err := sess.SetWardProfile(session.Profile{
		Name:         w.Name,
		Gender:       w.Gender,
		BirthDate:    w.BirthDate,
		Relationship: w.Relationship,
		Phone:        w.Phone,
		Age:          w.Age,
	}); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if answers := w.Diagnosis.Answers(); len(answers) > 0 {
		if err := sess.SetSurveyAnswers(answers); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Active ward: %s (%d)", w.Name, w.ID)))
	return nil
}

// wardArg returns the ward id argument, or the active ward.
func wardArg(args []string) (int64, error) {
	if len(args) > 0 {
		return parseID("ward id", args[0])
	}
	id, ok := sess.WardID()
	if !ok {
		return 0, fmt.Errorf("no active ward; pass a ward id or run 'ward register' / 'ward select'")
	}
	return id, nil
}

func describeWard(w api.Ward) string {
	var parts []string
	if w.Gender != "" {
		parts = append(parts, w.Gender)
	}
	if w.Age > 0 {
		parts = append(parts, fmt.Sprintf("%d세", w.Age))
	}
	if w.Relationship != "" {
		parts = append(parts, w.Relationship)
	}
	return strings.Join(parts, ", ")
}

func parseID(what, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", what, s)
	}
	return id, nil
}

// parseAnswers parses "0,1,2" into answer values.
func parseAnswers(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	answers := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid answer %q: must be 0-4", f)
		}
		answers = append(answers, n)
	}
	if len(answers) == 0 {
		return nil, fmt.Errorf("no answers given")
	}
	return answers, nil
}

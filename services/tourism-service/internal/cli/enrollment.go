package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/you/tourism-booking/services/tourism-service/internal/domain"
	"github.com/you/tourism-booking/services/tourism-service/internal/service"
)

var enrollmentCmd = &cobra.Command{
	Use:   "enrollment",
	Short: "Guide enrollment: submit, advance, pay and confirm",
}

var enrollmentCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Submit a guide enrollment",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		name, _ := f.GetString("name")
		email, _ := f.GetString("email")
		phone, _ := f.GetString("phone")
		languages, _ := f.GetStringSlice("languages")
		regions, _ := f.GetStringSlice("regions")
		years, _ := f.GetInt("experience")
		bio, _ := f.GetString("bio")

		in := service.EnrollInput{
			Name:  name,
			Email: email,
			Phone: phone,
			Profile: domain.GuideProfile{
				Languages:       languages,
				Regions:         regions,
				ExperienceYears: years,
				Bio:             bio,
			},
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			e, err := a.enrollments.Enroll(ctx, in)
			if err != nil {
				return err
			}
			return printJSON(cmd, e)
		})
	},
}

var enrollmentShowCmd = &cobra.Command{
	Use:   "show [enrollment-id]",
	Short: "Show an enrollment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			e, err := a.enrollments.Enrollment(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, e)
		})
	},
}

var enrollmentStatusCmd = &cobra.Command{
	Use:   "status [enrollment-id] [unverified|payment-pending|verified]",
	Short: "Move an enrollment forward",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			e, err := a.enrollments.UpdateStatus(ctx, args[0], domain.EnrollmentStatus(args[1]))
			if e != nil {
				if perr := printJSON(cmd, e); perr != nil {
					return perr
				}
			}
			return err
		})
	},
}

var enrollmentPayCmd = &cobra.Command{
	Use:   "payment-link [enrollment-id]",
	Short: "Open the enrollment fee payment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			res, err := a.enrollments.RequestPaymentLink(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		})
	},
}

var enrollmentConfirmCmd = &cobra.Command{
	Use:   "confirm [enrollment-id] [transaction-id]",
	Short: "Confirm a paid enrollment and provision the guide account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			acct, err := a.enrollments.ConfirmPayment(ctx, args[0], args[1])
			if acct != nil {
				if perr := printJSON(cmd, acct); perr != nil {
					return perr
				}
			}
			return err
		})
	},
}

func init() {
	enrollmentCmd.AddCommand(enrollmentCreateCmd)
	enrollmentCmd.AddCommand(enrollmentShowCmd)
	enrollmentCmd.AddCommand(enrollmentStatusCmd)
	enrollmentCmd.AddCommand(enrollmentPayCmd)
	enrollmentCmd.AddCommand(enrollmentConfirmCmd)

	f := enrollmentCreateCmd.Flags()
	f.String("name", "", "Applicant name")
	f.String("email", "", "Applicant email")
	f.String("phone", "", "Applicant phone")
	f.StringSlice("languages", nil, "Spoken languages")
	f.StringSlice("regions", nil, "Regions covered")
	f.Int("experience", 0, "Years of guiding experience")
	f.String("bio", "", "Short biography")
	_ = enrollmentCreateCmd.MarkFlagRequired("name")
	_ = enrollmentCreateCmd.MarkFlagRequired("email")
}

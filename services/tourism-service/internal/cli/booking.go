package cli

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/you/tourism-booking/services/tourism-service/internal/domain"
	"github.com/you/tourism-booking/services/tourism-service/internal/service"
)

var bookingCmd = &cobra.Command{
	Use:   "booking",
	Short: "Create, reconcile and allocate bookings",
}

var bookingCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a booking and open its payment",
	RunE:  runBookingCreate,
}

var bookingShowCmd = &cobra.Command{
	Use:   "show [booking-id]",
	Short: "Show a booking",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			b, err := a.bookings.Booking(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, b)
		})
	},
}

var bookingListCmd = &cobra.Command{
	Use:   "list [tourist-id]",
	Short: "List a tourist's bookings, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		size, _ := cmd.Flags().GetInt("size")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			items, total, err := a.bookings.BookingsForTourist(ctx, args[0], page, size)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{"items": items, "total": total})
		})
	},
}

var bookingStatusCmd = &cobra.Command{
	Use:   "status [booking-id]",
	Short: "Reconcile the booking's payment with the gateway",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			st, err := a.bookings.TransactionStatus(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, st)
		})
	},
}

var bookingRetryCmd = &cobra.Command{
	Use:   "retry-payment [booking-id]",
	Short: "Open a new payment for a booking still awaiting payment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			res, err := a.bookings.RetryPayment(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		})
	},
}

var bookingAllocateCmd = &cobra.Command{
	Use:   "allocate [booking-id] [guide-id]",
	Short: "Allocate a guide and notify tourist and guide",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			b, err := a.bookings.AllocateGuide(ctx, args[0], args[1])
			if b != nil {
				if perr := printJSON(cmd, b); perr != nil {
					return perr
				}
			}
			return err
		})
	},
}

func init() {
	bookingCmd.AddCommand(bookingCreateCmd)
	bookingCmd.AddCommand(bookingShowCmd)
	bookingCmd.AddCommand(bookingListCmd)
	bookingCmd.AddCommand(bookingStatusCmd)
	bookingCmd.AddCommand(bookingRetryCmd)
	bookingCmd.AddCommand(bookingAllocateCmd)

	f := bookingCreateCmd.Flags()
	f.String("tourist", "", "Tourist account id")
	f.String("name", "", "Tourist name")
	f.String("email", "", "Tourist email")
	f.String("phone", "", "Tourist phone")
	f.String("nationality", "", "Tourist nationality")
	f.Int("adults", 1, "Adults in the party")
	f.Int("children", 0, "Children in the party")
	f.String("destination", "", "Destination")
	f.String("start", "", "Start date (YYYY-MM-DD)")
	f.String("end", "", "End date (YYYY-MM-DD)")
	f.String("pickup", "", "Pickup location")
	f.String("notes", "", "Notes for the guide")
	f.StringSlice("languages", nil, "Preferred guide languages")
	f.String("gender", "", "Preferred guide gender")
	f.StringSlice("specializations", nil, "Preferred guide specializations")
	f.String("package", "", "Package name")
	f.Int("days", 1, "Duration in days")
	f.String("price", "", "Price in major currency units")
	for _, name := range []string{"tourist", "name", "email", "destination", "price"} {
		_ = bookingCreateCmd.MarkFlagRequired(name)
	}

	bookingListCmd.Flags().Int("page", 0, "Zero-based page")
	bookingListCmd.Flags().Int("size", 20, "Page size")
}

func runBookingCreate(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	str := func(name string) string {
		v, _ := f.GetString(name)
		return v
	}
	num := func(name string) int {
		v, _ := f.GetInt(name)
		return v
	}
	list := func(name string) []string {
		v, _ := f.GetStringSlice(name)
		return v
	}

	price, err := decimal.NewFromString(str("price"))
	if err != nil {
		return fmt.Errorf("--price: %w", err)
	}
	in := service.CreateBookingInput{
		TouristInfo: domain.TouristInfo{
			Name:        str("name"),
			Email:       str("email"),
			Phone:       str("phone"),
			Nationality: str("nationality"),
			Adults:      num("adults"),
			Children:    num("children"),
		},
		TravelDetails: domain.TravelDetails{
			Destination:    str("destination"),
			StartDate:      str("start"),
			EndDate:        str("end"),
			PickupLocation: str("pickup"),
			Notes:          str("notes"),
		},
		GuidePreferences: domain.GuidePreferences{
			Languages:       list("languages"),
			Gender:          str("gender"),
			Specializations: list("specializations"),
		},
		Configuration: domain.BookingConfiguration{
			Package:      str("package"),
			DurationDays: num("days"),
			GroupSize:    num("adults") + num("children"),
			Price:        price,
		},
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		res, err := a.bookings.CreateBooking(ctx, in, str("tourist"))
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	})
}

package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/example/transfer-booking/internal/cart"
	"github.com/example/transfer-booking/internal/client"
	"github.com/example/transfer-booking/internal/matcher"
	"github.com/example/transfer-booking/internal/models"
)

func openSession(c *cli.Context) (*client.Session, error) {
	crt, err := cart.Load(cart.NewFileStore(c.String("cart")), cart.WriterNotifier{W: c.App.ErrWriter})
	if err != nil {
		return nil, err
	}
	return &client.Session{API: client.New(c.String("api"), c.String("token")), Cart: crt}, nil
}

var searchFlags = []cli.Flag{
	&cli.StringFlag{Name: "pickup", Required: true, Usage: "origin location id"},
	&cli.StringFlag{Name: "dropoff", Required: true, Usage: "destination location id"},
	&cli.StringFlag{Name: "date", Required: true, Usage: "departure date, YYYY-MM-DD"},
	&cli.StringFlag{Name: "time", Usage: "departure time, HH:MM"},
	&cli.IntFlag{Name: "passengers", Value: 1},
	&cli.StringFlag{Name: "return-date", Usage: "return date; makes the trip a round trip"},
	&cli.StringFlag{Name: "return-time"},
}

func searchRequest(c *cli.Context) models.SearchRequest {
	return models.SearchRequest{
		Pickup:        c.String("pickup"),
		Dropoff:       c.String("dropoff"),
		Passengers:    c.Int("passengers"),
		DepartureDate: c.String("date"),
		DepartureTime: c.String("time"),
		IsRoundTrip:   c.String("return-date") != "",
		ReturnDate:    c.String("return-date"),
		ReturnTime:    c.String("return-time"),
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "list vehicles for a route",
		Flags: searchFlags,
		Action: func(c *cli.Context) error {
			s, err := openSession(c)
			if err != nil {
				return err
			}
			res, err := s.API.Search(c.Context, searchRequest(c))
			if err != nil {
				return err
			}
			printResult(c.App.Writer, res)
			return nil
		},
	}
}

func printResult(w io.Writer, res matcher.SearchResult) {
	fmt.Fprintf(w, "route %s: %.1f km, about %.0f min\n", res.Route.ID, res.Route.Distance, res.Route.EstimatedTime)
	if len(res.Vehicles) == 0 {
		fmt.Fprintln(w, "no vehicles seat that many passengers")
		return
	}
	for _, v := range res.Vehicles {
		fmt.Fprintf(w, "  %-24s %-10s %-14s seats %-3d %8.2f\n", v.ID, v.Type, v.Category, v.Capacity, v.BasePrice)
	}
}

// parsePicks reads id=qty pairs; a bare id means quantity 1.
func parsePicks(values []string) (map[string]int, error) {
	picks := make(map[string]int, len(values))
	for _, raw := range values {
		id, qtyStr, found := strings.Cut(raw, "=")
		qty := 1
		if found {
			n, err := strconv.Atoi(qtyStr)
			if err != nil {
				return nil, fmt.Errorf("bad quantity in %q", raw)
			}
			qty = n
		}
		if qty < 1 {
			return nil, client.ErrQuantity
		}
		picks[id] += qty
	}
	return picks, nil
}

func cartCommand() *cli.Command {
	return &cli.Command{
		Name:  "cart",
		Usage: "manage the local cart",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "search and add the chosen vehicles as one service",
				Flags: append(append([]cli.Flag{}, searchFlags...),
					&cli.StringSliceFlag{Name: "vehicle", Required: true, Usage: "vehicle id, optionally id=quantity; repeatable"}),
				Action: func(c *cli.Context) error {
					picks, err := parsePicks(c.StringSlice("vehicle"))
					if err != nil {
						return err
					}
					s, err := openSession(c)
					if err != nil {
						return err
					}
					req := searchRequest(c)
					res, err := s.API.Search(c.Context, req)
					if err != nil {
						return err
					}
					svc, err := s.AddFromSearch(req, res, picks)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "added service %s (%.2f)\n", svc.ID, cart.ServiceTotal(svc))
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "show services and totals",
				Action: func(c *cli.Context) error {
					s, err := openSession(c)
					if err != nil {
						return err
					}
					printCart(c.App.Writer, s.Cart)
					return nil
				},
			},
			{
				Name:      "remove",
				Usage:     "remove a service",
				ArgsUsage: "SERVICE_ID",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return errors.New("usage: cart remove SERVICE_ID")
					}
					s, err := openSession(c)
					if err != nil {
						return err
					}
					return s.Cart.RemoveService(c.Args().First())
				},
			},
			{
				Name:      "qty",
				Usage:     "set a vehicle quantity",
				ArgsUsage: "SERVICE_ID VEHICLE_ID QUANTITY",
				Action: func(c *cli.Context) error {
					if c.NArg() != 3 {
						return errors.New("usage: cart qty SERVICE_ID VEHICLE_ID QUANTITY")
					}
					qty, err := strconv.Atoi(c.Args().Get(2))
					if err != nil {
						return client.ErrQuantity
					}
					s, err := openSession(c)
					if err != nil {
						return err
					}
					return s.SetQuantity(c.Args().Get(0), c.Args().Get(1), qty)
				},
			},
			{
				Name:      "remove-vehicle",
				Usage:     "drop a vehicle line from a service",
				ArgsUsage: "SERVICE_ID VEHICLE_ID",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return errors.New("usage: cart remove-vehicle SERVICE_ID VEHICLE_ID")
					}
					s, err := openSession(c)
					if err != nil {
						return err
					}
					return s.Cart.RemoveVehicleLine(c.Args().Get(0), c.Args().Get(1))
				},
			},
			{
				Name:  "clear",
				Usage: "empty the cart",
				Action: func(c *cli.Context) error {
					s, err := openSession(c)
					if err != nil {
						return err
					}
					return s.Cart.Clear()
				},
			},
		},
	}
}

func printCart(w io.Writer, crt *cart.Cart) {
	if crt.Len() == 0 {
		fmt.Fprintln(w, "cart is empty")
		return
	}
	for _, s := range crt.Services() {
		trip := "one way"
		if s.IsRoundTrip {
			trip = "round trip, back " + s.ReturnDate
		}
		fmt.Fprintf(w, "%s  %s -> %s  %s %s  (%s)\n", s.ID, s.Pickup, s.Dropoff, s.DepartureDate, s.DepartureTime, trip)
		for _, v := range s.Vehicles {
			fmt.Fprintf(w, "    %-20s x%-3d %8.2f\n", v.Name, v.Quantity, v.Price)
		}
		fmt.Fprintf(w, "    subtotal %.2f\n", cart.ServiceTotal(s))
	}
	fmt.Fprintf(w, "total %.2f\n", crt.Total())
}

func checkoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "checkout",
		Usage: "pay for the cart and create a reservation",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "payment-method", Value: "pm_card_visa", Usage: "payment method token"},
		},
		Action: func(c *cli.Context) error {
			s, err := openSession(c)
			if err != nil {
				return err
			}
			created, err := s.Checkout(c.Context, c.String("payment-method"))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "reservation %s confirmed, total %.2f\n", created.Reservation.ReservationCode, created.Reservation.TotalPrice)
			fmt.Fprintf(c.App.Writer, "access password: %s (shown once)\n", created.Password)
			return nil
		},
	}
}

func lookupCommand() *cli.Command {
	return &cli.Command{
		Name:      "lookup",
		Usage:     "show a reservation by code and password",
		ArgsUsage: "CODE PASSWORD",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return errors.New("usage: lookup CODE PASSWORD")
			}
			s, err := openSession(c)
			if err != nil {
				return err
			}
			r, err := s.API.Lookup(c.Context, c.Args().Get(0), c.Args().Get(1))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%s  payment %s  total %.2f\n", r.ReservationCode, r.PaymentStatus, r.TotalPrice)
			for i, svc := range r.Services {
				fmt.Fprintf(c.App.Writer, "  [%d] %s %s %s  x%d  %.2f  %s\n", i, svc.VehicleID, svc.PickupDate, svc.PickupTime, svc.Quantity, svc.Price, svc.Status)
			}
			return nil
		},
	}
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "get a session token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "password", Required: true},
		},
		Action: func(c *cli.Context) error {
			api := client.New(c.String("api"), "")
			sess, err := api.Login(c.Context, c.String("email"), c.String("password"))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "export TRANSFER_TOKEN=%s\n", sess.Token)
			return nil
		},
	}
}

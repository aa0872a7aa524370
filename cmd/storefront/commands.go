package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/angelmondragon/salessavvy-storefront/internal/backend"
	"github.com/angelmondragon/salessavvy-storefront/internal/checkout"
	"github.com/angelmondragon/salessavvy-storefront/internal/orders"
	"github.com/angelmondragon/salessavvy-storefront/pkg/enums"
)

var errSignedOut = errors.New("not signed in; run `storefront login` first")

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.login(ctx, args)
	case "register":
		return a.register(ctx, args)
	case "logout":
		a.session.Logout(ctx)
		fmt.Fprintln(a.out, "signed out")
		return nil
	case "whoami":
		return a.whoami()
	case "health":
		if err := a.client.Ping(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "backend healthy")
		return nil
	case "forgot":
		return a.forgot(ctx, args)
	case "reset":
		return a.reset(ctx, args)
	case "check-reset":
		if len(args) != 1 {
			return errors.New("usage: check-reset <token>")
		}
		fmt.Fprintln(a.out, "valid:", a.session.ValidateResetToken(ctx, args[0]))
		return nil
	case "cart":
		return a.showCart(ctx)
	case "add":
		return a.add(ctx, args)
	case "update":
		return a.update(ctx, args)
	case "remove":
		return a.remove(ctx, args)
	case "clear":
		return a.cartResult(ctx, a.cart.ClearCart(ctx))
	case "checkout":
		return a.checkout(ctx, args)
	case "orders":
		return a.listOrders(ctx)
	case "order":
		return a.showOrder(ctx, args)
	case "cancel":
		return a.cancel(ctx, args)
	case "status":
		return a.setStatus(ctx, args)
	default:
		return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	user := fs.String("u", "", "username or email")
	password := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	resp, err := a.session.Login(ctx, backend.LoginRequest{Username: *user, Password: *password})
	if err != nil {
		return errors.New(a.session.Error())
	}
	fmt.Fprintf(a.out, "signed in as %s (%s)\n", resp.User.Username, resp.User.Role)
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	user := fs.String("u", "", "username")
	email := fs.String("e", "", "email")
	password := fs.String("p", "", "password")
	role := fs.String("role", string(enums.RoleCustomer), "CUSTOMER or ADMIN")
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	parsedRole, err := enums.ParseRole(*role)
	if err != nil {
		return err
	}
	resp, err := a.session.Register(ctx, backend.RegisterRequest{
		Username:  *user,
		Email:     *email,
		Password:  *password,
		Role:      parsedRole,
		FirstName: *first,
		LastName:  *last,
	})
	if err != nil {
		return errors.New(a.session.Error())
	}
	fmt.Fprintf(a.out, "registered and signed in as %s (%s)\n", resp.User.Username, resp.User.Role)
	return nil
}

func (a *app) whoami() error {
	identity := a.session.Identity()
	if identity == nil {
		return errSignedOut
	}
	fmt.Fprintf(a.out, "%s <%s> id=%d role=%s\n", identity.Username, identity.Email, identity.UserID, identity.Role)
	return nil
}

func (a *app) forgot(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: forgot <email>")
	}
	msg, err := a.session.ForgotPassword(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *app) reset(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: reset <token> <new-password>")
	}
	msg, err := a.session.ResetPassword(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *app) showCart(ctx context.Context) error {
	if !a.session.IsAuthenticated() {
		return errSignedOut
	}
	if !a.cart.FetchCartData(ctx) {
		if msg := a.cart.Error(); msg != "" {
			return errors.New(msg)
		}
		return errSignedOut
	}
	printCart(a.out, a.cart.Items(), a.cart.CartCount(), a.cart.CartTotal().StringFixed(2))
	return nil
}

func (a *app) add(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: add <productId> [qty]")
	}
	productID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid product id %q", args[0])
	}
	qty := 1
	if len(args) == 2 {
		if qty, err = strconv.Atoi(args[1]); err != nil {
			return fmt.Errorf("invalid quantity %q", args[1])
		}
	}
	return a.cartResult(ctx, a.cart.AddToCart(ctx, productID, qty))
}

func (a *app) update(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: update <cartItemId> <qty>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid cart item id %q", args[0])
	}
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid quantity %q", args[1])
	}
	return a.cartResult(ctx, a.cart.UpdateCartItem(ctx, id, qty))
}

func (a *app) remove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: remove <cartItemId>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid cart item id %q", args[0])
	}
	return a.cartResult(ctx, a.cart.RemoveFromCart(ctx, id))
}

func (a *app) cartResult(ctx context.Context, ok bool) error {
	if !ok {
		if msg := a.cart.Error(); msg != "" {
			return errors.New(msg)
		}
		return errSignedOut
	}
	fmt.Fprintln(a.out, a.cart.Success())
	printCart(a.out, a.cart.Items(), a.cart.CartCount(), a.cart.CartTotal().StringFixed(2))
	return nil
}

func (a *app) checkout(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	var draft checkout.Draft
	method := fs.String("method", "", "COD, CARD, UPI or WALLET")
	fs.StringVar(&draft.ShippingAddress, "address", "", "shipping address")
	fs.StringVar(&draft.CardNumber, "card", "", "card number")
	fs.StringVar(&draft.ExpiryDate, "expiry", "", "card expiry (MM/YY)")
	fs.StringVar(&draft.CVV, "cvv", "", "card CVV")
	fs.StringVar(&draft.NameOnCard, "name", "", "name on card")
	fs.StringVar(&draft.UPIID, "upi", "", "UPI id")
	fs.StringVar(&draft.WalletType, "wallet", "", "wallet type")
	fs.StringVar(&draft.MobileNumber, "mobile", "", "wallet mobile number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	draft.PaymentMethod = enums.PaymentMethod(*method)

	if _, err := a.workflow.CreateOrder(ctx, draft); err != nil {
		for field, msg := range a.workflow.FieldErrors() {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", field, msg)
		}
		return errors.New(a.workflow.Error())
	}
	printConfirmation(a.out, a.workflow.TakeConfirmation())
	return nil
}

func (a *app) listOrders(ctx context.Context) error {
	list := a.workflow.FetchUserOrders(ctx)
	if msg := a.workflow.Error(); msg != "" {
		return errors.New(msg)
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tSTATUS\tPAYMENT\tITEMS\tTOTAL\tPLACED")
	for _, o := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n", o.ID, o.Status, o.PaymentStatus, len(o.Items),
			o.TotalAmount.StringFixed(2), o.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func (a *app) showOrder(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: order <orderId>")
	}
	order, err := a.workflow.GetOrderByID(ctx, args[0])
	if err != nil {
		return errors.New(a.workflow.Error())
	}
	printOrder(a.out, *order)
	return nil
}

func (a *app) cancel(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: cancel <orderId>")
	}
	order, err := a.workflow.GetOrderByID(ctx, args[0])
	if err != nil {
		return errors.New(a.workflow.Error())
	}
	if !order.Status.Cancellable() {
		return fmt.Errorf("order %s is %s and can no longer be cancelled", order.ID, order.Status)
	}
	if !a.workflow.CancelOrder(ctx, order.ID) {
		return errors.New(a.workflow.Error())
	}
	order, err = a.workflow.GetOrderByID(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("cancel accepted but the order could not be reloaded: %s", a.workflow.Error())
	}
	fmt.Fprintf(a.out, "order %s is now %s\n", order.ID, order.Status)
	return nil
}

func (a *app) setStatus(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: status <orderId> <STATUS>")
	}
	status, err := enums.ParseOrderStatus(args[1])
	if err != nil {
		return err
	}
	order, err := a.workflow.UpdateOrderStatus(ctx, args[0], status)
	if err != nil {
		return errors.New(a.workflow.Error())
	}
	fmt.Fprintf(a.out, "order %s is now %s\n", order.ID, order.Status)
	return nil
}

func printCart(out io.Writer, items []backend.LineItem, count int, total string) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LINE\tPRODUCT\tPRICE\tQTY\tSUBTOTAL")
	for _, it := range items {
		fmt.Fprintf(w, "%d\t%s (#%d)\t%s\t%d\t%s\n", it.ID, it.Product.Name, it.Product.ID,
			it.Product.Price.StringFixed(2), it.Quantity, it.Subtotal.StringFixed(2))
	}
	fmt.Fprintf(w, "\t%d line(s)\t\t\t%s\n", count, total)
	_ = w.Flush()
}

// printConfirmation renders the one-shot checkout handoff.
func printConfirmation(out io.Writer, c orders.Confirmation) {
	if !c.Available || c.Order == nil {
		fmt.Fprintln(out, c.Message)
		return
	}
	fmt.Fprintf(out, "order %s placed\n", c.Order.ID)
	printOrder(out, *c.Order)
}

func printOrder(out io.Writer, o backend.Order) {
	fmt.Fprintf(out, "order %s  status=%s  payment=%s/%s\n", o.ID, o.Status, o.PaymentMethod.DisplayName(), o.PaymentStatus)
	fmt.Fprintf(out, "ship to: %s\n", o.ShippingAddress)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PRODUCT\tPRICE\tQTY\tSUBTOTAL")
	for _, it := range o.Items {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", it.ProductName, it.Price.StringFixed(2), it.Quantity, it.Subtotal.StringFixed(2))
	}
	fmt.Fprintf(w, "\t\ttotal\t%s\n", o.TotalAmount.StringFixed(2))
	_ = w.Flush()
}

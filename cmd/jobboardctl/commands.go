package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/goliatone/go-print"

	"github.com/goliatone/go-jobboard"
	"github.com/goliatone/go-jobboard/client"
)

type command struct {
	app *client.App
	out io.Writer
	now func() time.Time
}

func (c command) dispatch(ctx context.Context, name string, args []string) error {
	switch name {
	case "login":
		return c.login(ctx, args)
	case "logout":
		return c.app.Session.Logout(ctx)
	case "whoami":
		return c.whoami()
	case "tenants":
		return c.tenants(ctx)
	case "select-tenant":
		return c.selectTenant(ctx, args)
	case "offers":
		return c.offers(ctx, args)
	case "offer":
		id, _, err := parseID(args)
		if err != nil {
			return err
		}
		offer, err := c.app.Client.GetOffer(ctx, id)
		if err != nil {
			return err
		}
		return c.print(offerView(*offer, c.now()))
	case "submit", "validate", "publish", "close", "reject", "feature", "unfeature":
		return c.workflow(ctx, name, args)
	case "candidature-status":
		return c.candidatureStatus(ctx, args)
	case "pending-tenants":
		list, err := c.app.Reviews.Pending(ctx, c.app.Actor())
		if err != nil {
			return err
		}
		return c.print(list)
	case "validate-tenant", "reject-tenant", "revalidate-tenant":
		return c.review(ctx, name, args)
	case "track":
		if len(args) == 0 {
			return fmt.Errorf("missing tracking code")
		}
		res, err := c.app.Client.Track(ctx, args[0])
		if err != nil {
			return err
		}
		return c.print(res)
	}
	return fmt.Errorf("unknown command %q", name)
}

func (c command) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	remember := fs.Bool("remember", false, "remember the email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		if remembered, ok := c.app.Session.RememberedEmail(ctx); ok {
			*email = remembered
		}
	}

	session, err := c.app.SignIn(ctx, jobboard.LoginRequest{
		Email:    *email,
		Password: *password,
		Remember: *remember,
	})
	if err != nil {
		if f := jobboard.LoginFailureFor(jobboard.KindOf(err)); f.Title != "" {
			fmt.Fprintf(c.out, "%s\n%s\n", f.Title, err.Error())
		}
		return err
	}
	return c.print(sessionView(*session, c.app.Tenants.State()))
}

func (c command) whoami() error {
	return c.print(sessionView(c.app.Session.Current(), c.app.Tenants.State()))
}

func (c command) tenants(ctx context.Context) error {
	if !c.app.Tenants.IsMultiTenantMode() {
		fmt.Fprintln(c.out, "single organization account")
		return nil
	}
	if _, err := c.app.Tenants.LoadManagedTenants(ctx); err != nil {
		return err
	}
	return c.print(c.app.Tenants.State())
}

func (c command) selectTenant(ctx context.Context, args []string) error {
	id, _, err := parseID(args)
	if err != nil {
		return err
	}
	if len(c.app.Tenants.ManagedTenants()) == 0 {
		if _, err := c.app.Tenants.LoadManagedTenants(ctx); err != nil {
			return err
		}
	}
	if err := c.app.Tenants.SelectTenantID(ctx, id); err != nil {
		return err
	}
	return c.print(c.app.Tenants.State())
}

func (c command) offers(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("offers", flag.ContinueOnError)
	featured := fs.Bool("featured", false, "sponsored offers only")
	mine := fs.Bool("mine", false, "offers of my organization")
	search := fs.String("search", "", "full text filter")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		list []jobboard.Offer
		err  error
	)
	switch {
	case *featured:
		list, err = c.app.Client.FeaturedOffers(ctx)
	case *mine && c.app.Tenants.IsMultiTenantMode():
		list, err = c.app.Client.CommunityOffers(ctx, 0)
	case *mine:
		list, err = c.app.Client.MyOffers(ctx)
	default:
		list, err = c.app.Client.ListOffers(ctx, client.OfferQuery{Search: *search})
	}
	if err != nil {
		return err
	}

	now := c.now()
	jobboard.SortForListing(list, now)
	views := make([]map[string]any, 0, len(list))
	for _, o := range list {
		views = append(views, offerView(o, now))
	}
	return c.print(views)
}

func (c command) workflow(ctx context.Context, action string, args []string) error {
	id, rest, err := parseID(args)
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet(action, flag.ContinueOnError)
	reason := fs.String("reason", "", "rejection reason")
	level := fs.Int("level", 0, "sponsorship level (1-3)")
	days := fs.Int("days", 0, "sponsorship duration in days")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	offer, err := c.app.Client.GetOffer(ctx, id)
	if err != nil {
		return err
	}
	actor := c.app.Actor()
	lc := c.app.Offers

	var updated *jobboard.Offer
	switch action {
	case "submit":
		updated, err = lc.Submit(ctx, actor, offer)
	case "validate":
		updated, err = lc.Validate(ctx, actor, offer)
	case "publish":
		updated, err = lc.Publish(ctx, actor, offer)
	case "close":
		updated, err = lc.Close(ctx, actor, offer)
	case "reject":
		updated, err = lc.Reject(ctx, actor, offer, *reason)
	case "feature":
		updated, err = lc.Feature(ctx, actor, offer, jobboard.FeatureRequest{Level: *level, DurationDays: *days})
	case "unfeature":
		updated, err = lc.Unfeature(ctx, actor, offer)
	}
	if err != nil {
		return err
	}
	return c.print(offerView(*updated, c.now()))
}

func (c command) review(ctx context.Context, action string, args []string) error {
	id, rest, err := parseID(args)
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet(action, flag.ContinueOnError)
	reason := fs.String("reason", "", "rejection reason")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	tenant, err := c.app.Client.GetTenant(ctx, id)
	if err != nil {
		return err
	}
	actor := c.app.Actor()
	rv := c.app.Reviews

	var updated *jobboard.Tenant
	switch action {
	case "validate-tenant":
		updated, err = rv.Validate(ctx, actor, tenant)
	case "reject-tenant":
		updated, err = rv.Reject(ctx, actor, tenant, *reason)
	case "revalidate-tenant":
		updated, err = rv.Revalidate(ctx, actor, tenant)
	}
	if err != nil {
		return err
	}
	return c.print(updated)
}

func (c command) candidatureStatus(ctx context.Context, args []string) error {
	id, rest, err := parseID(args)
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("candidature-status", flag.ContinueOnError)
	offerID := fs.Int64("offer", 0, "offer the candidature belongs to")
	status := fs.String("status", "", "acceptee or refusee")
	message := fs.String("message", "", "message sent to the candidate")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	target, ok := jobboard.ParseCandidatureStatus(*status)
	if !ok {
		return fmt.Errorf("unknown status %q", *status)
	}

	offer, err := c.app.Client.GetOffer(ctx, *offerID)
	if err != nil {
		return err
	}
	list, err := c.app.Client.ListCandidatures(ctx, offer.ID)
	if err != nil {
		return err
	}
	var current *jobboard.Candidature
	for i := range list {
		if list[i].ID == id {
			current = &list[i]
			break
		}
	}
	if current == nil {
		return fmt.Errorf("candidature %d not found for offer %d", id, offer.ID)
	}

	updated, err := c.app.Candidatures.UpdateStatus(ctx, c.app.Actor(), current, offer.EntrepriseID, target, *message)
	if err != nil {
		return err
	}
	return c.print(updated)
}

func (c command) print(v any) error {
	_, err := fmt.Fprintln(c.out, print.MaybePrettyJSON(v))
	return err
}

func sessionView(s jobboard.Session, tenants jobboard.TenantState) map[string]any {
	role, _ := s.PrimaryRole()
	view := map[string]any{
		"authenticated": s.Authenticated(),
		"email":         s.Identity.Email,
		"name":          s.Identity.DisplayName(),
		"role":          string(role),
		"tenant_mode":   string(tenants.Mode),
	}
	if !s.Credentials.ExpiresAt.IsZero() {
		view["expires_at"] = s.Credentials.ExpiresAt
	}
	if t, ok := tenants.Active(); ok {
		view["active_tenant"] = t
	}
	return view
}

func offerView(o jobboard.Offer, now time.Time) map[string]any {
	return map[string]any{
		"id":                   o.ID,
		"titre":                o.Title,
		"statut":               string(o.EffectiveStatus(now)),
		"entreprise_id":        o.EntrepriseID,
		"featured":             o.IsFeaturedActive(now),
		"sponsored_level":      o.EffectiveLevel(now),
		"accepts_applications": o.AcceptsApplications(now),
	}
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/harentsoaR/testmanager-api/internal/models"
	"github.com/harentsoaR/testmanager-api/internal/services"
	"github.com/harentsoaR/testmanager-api/internal/store"
)

func newCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "tmctl",
		Usage: "Administers testmanager-api data directly against its store",
		Commands: []*cli.Command{
			{
				Name:  "create-user",
				Usage: "Creates a user account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Leave empty to create an account that cannot log in yet"},
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true, Usage: "Full name"},
					&cli.StringFlag{Name: "role", Aliases: []string{"r"}, Value: string(models.RoleCollaborator), Usage: roleNames()},
					&cli.StringFlag{Name: "client-id", Usage: "Client record linked to a client user"},
				},
				Action: a.createUser,
			},
			{
				Name:  "create-client",
				Usage: "Creates a client record",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true},
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}},
					&cli.StringFlag{Name: "company"},
					&cli.StringFlag{Name: "phone"},
				},
				Action: a.createClient,
			},
			{
				Name:  "create-project",
				Usage: "Creates a project",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true},
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}},
					&cli.StringSliceFlag{Name: "client", Aliases: []string{"c"}, Usage: "Linked client id. Can be specified multiple times."},
					&cli.StringSliceFlag{Name: "member", Aliases: []string{"m"}, Usage: "Member user id. Can be specified multiple times."},
					&cli.StringFlag{Name: "responsible", Usage: "Responsible user id"},
					&cli.StringFlag{Name: "status", Value: string(models.ProjectPlanning)},
					&cli.StringFlag{Name: "priority", Value: string(models.PriorityMedium)},
				},
				Action: a.createProject,
			},
			{
				Name:  "create-test",
				Usage: "Creates a test case inside a project",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "project", Required: true},
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Required: true},
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}},
					&cli.StringSliceFlag{Name: "step", Aliases: []string{"s"}, Usage: "Step as 'description[=>expected result]'. Can be specified multiple times."},
				},
				Action: a.createTest,
			},
			{
				Name:  "set-claims",
				Usage: "Sets the role and client link of a user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "uid", Required: true},
					&cli.StringFlag{Name: "role", Aliases: []string{"r"}, Required: true, Usage: roleNames()},
					&cli.StringFlag{Name: "client-id"},
				},
				Action: a.setClaims,
			},
			{
				Name:  "token",
				Usage: "Mints a bearer token for an existing user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "uid"},
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}},
				},
				Action: a.token,
			},
			{
				Name:      "list",
				Usage:     "Lists users, clients or projects as YAML",
				ArgsUsage: "users|clients|projects",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Search term"},
					&cli.IntFlag{Name: "page", Value: 1},
					&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: store.DefaultLimit},
				},
				Action: a.list,
			},
		},
	}
}

// roleNames lists the known roles as "a, b or c".
func roleNames() string {
	names := make([]string, len(models.Roles))
	for i, r := range models.Roles {
		names[i] = r.String()
	}
	if len(names) < 2 {
		return strings.Join(names, "")
	}
	return strings.Join(names[:len(names)-1], ", ") + " or " + names[len(names)-1]
}

func parseRole(cmd *cli.Command) (models.Role, error) {
	role, ok := models.ParseRole(cmd.String("role"))
	if !ok {
		return "", fmt.Errorf("unknown role %q: expected %s", cmd.String("role"), roleNames())
	}
	return role, nil
}

func (a *app) createUser(ctx context.Context, cmd *cli.Command) error {
	role, err := parseRole(cmd)
	if err != nil {
		return err
	}
	if err := a.open(ctx); err != nil {
		return err
	}
	u, err := a.svc.Auth.CreateUser(ctx, operator, services.NewUser{
		Email:    cmd.String("email"),
		Password: cmd.String("password"),
		FullName: cmd.String("name"),
		Role:     role,
		ClientID: cmd.String("client-id"),
	})
	if err != nil {
		return err
	}
	return printYAML(cmd.Root().Writer, u)
}

func (a *app) createClient(ctx context.Context, cmd *cli.Command) error {
	if err := a.open(ctx); err != nil {
		return err
	}
	c, err := a.svc.Clients.Create(ctx, operator, &models.Client{
		Name:     cmd.String("name"),
		Email:    cmd.String("email"),
		Company:  cmd.String("company"),
		Phone:    cmd.String("phone"),
		IsActive: true,
	})
	if err != nil {
		return err
	}
	return printYAML(cmd.Root().Writer, c)
}

func (a *app) createProject(ctx context.Context, cmd *cli.Command) error {
	if err := a.open(ctx); err != nil {
		return err
	}
	p, err := a.svc.Projects.Create(ctx, operator, &models.Project{
		Name:          cmd.String("name"),
		Description:   cmd.String("description"),
		Clients:       cmd.StringSlice("client"),
		Members:       cmd.StringSlice("member"),
		ResponsibleID: cmd.String("responsible"),
		Status:        models.ProjectStatus(cmd.String("status")),
		Priority:      models.Priority(cmd.String("priority")),
	})
	if err != nil {
		return err
	}
	return printYAML(cmd.Root().Writer, p)
}

// parseStep splits "do this=>expect that" into a step.
func parseStep(s string) models.Step {
	desc, expected, _ := strings.Cut(s, "=>")
	return models.Step{Description: strings.TrimSpace(desc), ExpectedResult: strings.TrimSpace(expected)}
}

func (a *app) createTest(ctx context.Context, cmd *cli.Command) error {
	if err := a.open(ctx); err != nil {
		return err
	}
	var steps []models.Step
	for _, s := range cmd.StringSlice("step") {
		steps = append(steps, parseStep(s))
	}
	t, err := a.svc.Tests.Create(ctx, operator, cmd.String("project"), &models.Test{
		Title:       cmd.String("title"),
		Description: cmd.String("description"),
		Steps:       steps,
	})
	if err != nil {
		return err
	}
	return printYAML(cmd.Root().Writer, t)
}

func (a *app) setClaims(ctx context.Context, cmd *cli.Command) error {
	role, err := parseRole(cmd)
	if err != nil {
		return err
	}
	if err := a.open(ctx); err != nil {
		return err
	}
	u, err := a.svc.Auth.SetClaims(ctx, operator, cmd.String("uid"), role, cmd.String("client-id"))
	if err != nil {
		return err
	}
	return printYAML(cmd.Root().Writer, u)
}

func (a *app) token(ctx context.Context, cmd *cli.Command) error {
	if err := a.open(ctx); err != nil {
		return err
	}
	var (
		u   *models.User
		err error
	)
	switch {
	case cmd.String("uid") != "":
		u, err = a.stores.Users.Get(ctx, cmd.String("uid"))
	case cmd.String("email") != "":
		u, err = a.stores.Users.GetByEmail(ctx, cmd.String("email"))
	default:
		return fmt.Errorf("one of --uid or --email is required")
	}
	if err != nil {
		return err
	}
	sess, err := a.svc.Auth.Issue(u)
	if err != nil {
		return err
	}
	return printYAML(cmd.Root().Writer, map[string]interface{}{
		"uid":       u.ID,
		"token":     sess.Token,
		"expiresAt": sess.ExpiresAt,
	})
}

func (a *app) list(ctx context.Context, cmd *cli.Command) error {
	kind := cmd.Args().First()
	if kind == "" {
		return fmt.Errorf("expected one of users, clients or projects")
	}
	if err := a.open(ctx); err != nil {
		return err
	}
	opts := store.ListOptions{Page: cmd.Int("page"), Limit: cmd.Int("limit")}.Normalize()
	q := cmd.String("query")

	var (
		out interface{}
		err error
	)
	switch kind {
	case "users":
		out, err = a.svc.Users.List(ctx, operator, store.UserFilter{Search: q}, opts)
	case "clients":
		out, err = a.svc.Clients.List(ctx, operator, store.ClientFilter{Search: q}, opts)
	case "projects":
		out, err = a.svc.Projects.List(ctx, operator, store.ProjectFilter{Search: q}, opts)
	default:
		return fmt.Errorf("cannot list %q: expected users, clients or projects", kind)
	}
	if err != nil {
		return err
	}
	return printYAML(cmd.Root().Writer, out)
}

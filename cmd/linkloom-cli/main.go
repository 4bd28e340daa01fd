package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"linkloom/pkg/client"
	"linkloom/pkg/models"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "linkloom server base URL")
	sessionPath := flag.String("session", "", "session file path (defaults to the user config dir)")
	flag.Parse()

	path := *sessionPath
	if path == "" {
		var err error
		path, err = client.DefaultSessionPath()
		if err != nil {
			fmt.Fprintln(os.Stderr, "cannot determine session path:", err)
			os.Exit(1)
		}
	}

	api, err := client.NewAPIClient(*serverURL, client.NewSessionStore(path))
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize client:", err)
		os.Exit(1)
	}

	app := &app{
		api: api,
		in:  bufio.NewScanner(os.Stdin),
	}
	app.sync = client.NewSyncClient(api, app.renderFolders, app.notify, app.confirmPrompt)

	if api.LoggedIn() {
		fmt.Printf("Welcome back, %s\n", api.Session().Username)
		if err := app.sync.Load(context.Background()); err == nil {
			app.renderFolders(app.sync.Folders())
		}
	} else {
		fmt.Println("Not logged in. Use 'login <email> <password>' or 'register <username> <email> <password>'.")
	}

	app.run()
}

type app struct {
	api  *client.APIClient
	sync *client.SyncClient
	in   *bufio.Scanner
}

func (a *app) run() {
	for {
		fmt.Print("> ")
		if !a.in.Scan() {
			return
		}
		line := strings.TrimSpace(a.in.Text())
		if line == "" {
			continue
		}

		args := strings.Fields(line)
		cmd, args := args[0], args[1:]
		ctx := context.Background()

		switch cmd {
		case "quit", "exit":
			return
		case "help":
			printHelp()
		case "register":
			a.register(ctx, args)
		case "login":
			a.login(ctx, args)
		case "logout":
			if err := a.api.Logout(); err != nil {
				fmt.Println("logout failed:", err)
			} else {
				fmt.Println("Logged out")
			}
		case "list":
			if len(args) > 0 && args[0] == "sorted" {
				a.renderSorted(a.sync.Folders())
			} else {
				a.renderFolders(a.sync.Folders())
			}
		case "reload":
			if err := a.sync.Load(ctx); err == nil {
				a.renderFolders(a.sync.Folders())
			}
		case "add-folder":
			if len(args) < 1 {
				fmt.Println("usage: add-folder <name>")
				continue
			}
			a.sync.AddFolder(ctx, strings.Join(args, " "))
		case "add-link":
			a.addLink(ctx, args)
		case "del-link":
			a.delLink(ctx, args)
		case "del-folder":
			if i, ok := parseIndex(args, 0, "usage: del-folder <folder#>"); ok {
				a.sync.DeleteFolder(ctx, i)
			}
		case "move":
			a.move(ctx, args)
		case "import":
			a.importFile(ctx, args)
		case "export":
			a.exportFile(args)
		case "theme":
			a.theme(args)
		default:
			fmt.Println("unknown command, try 'help'")
		}
	}
}

func (a *app) register(ctx context.Context, args []string) {
	if len(args) != 3 {
		fmt.Println("usage: register <username> <email> <password>")
		return
	}
	if err := a.api.Register(ctx, args[0], args[1], args[2]); err != nil {
		fmt.Println("registration failed:", err)
		return
	}
	fmt.Println("Registered. Now log in with 'login <email> <password>'.")
}

func (a *app) login(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Println("usage: login <email> <password>")
		return
	}
	username, err := a.api.Login(ctx, args[0], args[1])
	if err != nil {
		fmt.Println("login failed:", err)
		return
	}
	fmt.Printf("Welcome, %s\n", username)
	if err := a.sync.Load(ctx); err == nil {
		a.renderFolders(a.sync.Folders())
	}
}

func (a *app) addLink(ctx context.Context, args []string) {
	if len(args) < 3 {
		fmt.Println("usage: add-link <folder#> <url> <title...>")
		return
	}
	folder, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Println("usage: add-link <folder#> <url> <title...>")
		return
	}
	a.sync.AddLink(ctx, folder, strings.Join(args[2:], " "), args[1])
}

func (a *app) delLink(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Println("usage: del-link <folder#> <link#>")
		return
	}
	folder, err1 := strconv.Atoi(args[0])
	link, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil {
		fmt.Println("usage: del-link <folder#> <link#>")
		return
	}
	a.sync.DeleteLink(ctx, folder, link)
}

func (a *app) move(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Println("usage: move <from#> <to#>")
		return
	}
	from, err1 := strconv.Atoi(args[0])
	to, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil {
		fmt.Println("usage: move <from#> <to#>")
		return
	}
	a.sync.Reorder(ctx, from, to)
}

func (a *app) importFile(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: import <file.json>")
		return
	}
	f, err := os.Open(args[0])
	if err != nil {
		fmt.Println("cannot open file:", err)
		return
	}
	defer f.Close()
	if err := a.sync.Import(ctx, f); err == nil {
		fmt.Println("Imported")
	}
}

func (a *app) exportFile(args []string) {
	if len(args) == 0 {
		if err := a.sync.Export(os.Stdout); err != nil {
			fmt.Println("export failed:", err)
		}
		fmt.Println()
		return
	}
	f, err := os.Create(args[0])
	if err != nil {
		fmt.Println("cannot create file:", err)
		return
	}
	defer f.Close()
	if err := a.sync.Export(f); err != nil {
		fmt.Println("export failed:", err)
		return
	}
	fmt.Println("Exported to", args[0])
}

func (a *app) theme(args []string) {
	if len(args) == 0 {
		fmt.Println("theme:", a.api.Session().Theme)
		return
	}
	if err := a.api.SetTheme(args[0]); err != nil {
		fmt.Println("failed to save theme:", err)
		return
	}
	fmt.Println("theme set to", args[0])
}

// renderFolders prints the collection in stored order, which is the order
// the mutation commands index into.
func (a *app) renderFolders(folders []models.Folder) {
	if len(folders) == 0 {
		fmt.Println("(no folders)")
		return
	}
	for fi, folder := range folders {
		fmt.Printf("[%d] %s\n", fi, folder.Name)
		for li, link := range folder.Links {
			fmt.Printf("    %d. %s  %s\n", li, link.Title, link.URL)
		}
		if len(folder.Links) == 0 {
			fmt.Println("    (empty)")
		}
	}
}

// renderSorted shows each folder's links alphabetized by title, matching how
// a browsing view presents them. Storage order is untouched.
func (a *app) renderSorted(folders []models.Folder) {
	if len(folders) == 0 {
		fmt.Println("(no folders)")
		return
	}
	for fi, folder := range folders {
		fmt.Printf("[%d] %s\n", fi, folder.Name)
		for _, link := range folder.SortedLinks() {
			fmt.Printf("    - %s  %s\n", link.Title, link.URL)
		}
		if len(folder.Links) == 0 {
			fmt.Println("    (empty)")
		}
	}
}

func (a *app) notify(message string) {
	fmt.Println("!", message)
}

func (a *app) confirmPrompt(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	if !a.in.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(a.in.Text()))
	return answer == "y" || answer == "yes"
}

func parseIndex(args []string, pos int, usage string) (int, bool) {
	if len(args) <= pos {
		fmt.Println(usage)
		return 0, false
	}
	i, err := strconv.Atoi(args[pos])
	if err != nil {
		fmt.Println(usage)
		return 0, false
	}
	return i, true
}

func printHelp() {
	fmt.Println(`commands:
  register <username> <email> <password>
  login <email> <password>
  logout
  list [sorted]              show the local collection
  reload                     fetch the collection from the server
  add-folder <name>
  add-link <folder#> <url> <title...>
  del-link <folder#> <link#>
  del-folder <folder#>
  move <from#> <to#>
  import <file.json>
  export [file.json]
  theme [name]
  quit`)
}

// Command duel is a line-oriented terminal client: it logs in to a
// duel-server, creates or joins a room and plays the shared puzzle against
// the other seat.
//
//	duel -user alice            # create a room and print its code
//	duel -user bob -join K7QMRT # join it
//
// Type a five-letter guess per line. Commands: /next, /score, /stats, /quit.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordduel/internal/config"
	"github.com/robalobadob/wordduel/internal/game"
	"github.com/robalobadob/wordduel/internal/match"
	"github.com/robalobadob/wordduel/internal/roomclient"
	"github.com/robalobadob/wordduel/internal/stats"
	"github.com/robalobadob/wordduel/internal/words"
)

const requestTimeout = 10 * time.Second

func main() {
	var (
		cfgPath  = flag.String("config", "", "path to a TOML config file")
		user     = flag.String("user", os.Getenv("DUEL_USER"), "username")
		password = flag.String("password", os.Getenv("DUEL_PASSWORD"), "password")
		code     = flag.String("join", "", "room code to join; empty creates a room")
		hard     = flag.Bool("hard", false, "hard mode (overrides config)")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	zerolog.SetGlobalLevel(cfg.Level())
	if *hard {
		cfg.HardMode = true
	}
	if *user == "" || *password == "" {
		log.Fatal().Msg("-user and -password (or DUEL_USER / DUEL_PASSWORD) are required")
	}

	dict, err := words.Load(cfg.AnswersFile, cfg.AllowedFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load word lists")
	}

	client, err := roomclient.New(cfg.ServerURL)
	if err != nil {
		log.Fatal().Err(err).Msg("server url")
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	me, err := client.Login(ctx, *user, *password)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Str("server", cfg.ServerURL).Msg("login")
	}
	fmt.Printf("logged in as %s\n", me.Username)

	p := &player{
		client:  client,
		coord:   match.NewCoordinator(client, dict, me.ID, match.WithPollInterval(cfg.PollInterval)),
		session: game.NewSession(dict),
		stats:   stats.NewRecorder(client, cfg.StatsFile),
		hard:    cfg.HardMode,
	}
	if err := p.run(*code); err != nil {
		log.Fatal().Err(err).Msg("duel")
	}
}

type player struct {
	client  *roomclient.Client
	coord   *match.Coordinator
	session *game.Session
	stats   *stats.Recorder
	hard    bool
	ready   bool
}

func (p *player) run(code string) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	var room match.Room
	var err error
	if code == "" {
		room, err = p.coord.Create(ctx)
	} else {
		room, err = p.coord.Join(ctx, code)
	}
	cancel()
	switch {
	case errors.Is(err, match.ErrRoomNotFound):
		return fmt.Errorf("no room with code %q", code)
	case errors.Is(err, match.ErrRoomFull):
		return fmt.Errorf("room %q already has two players", code)
	case err != nil:
		return err
	}
	defer p.leave()

	if err := p.session.Start(room.Word); err != nil {
		return err
	}
	if code == "" {
		fmt.Printf("room code %s, waiting for an opponent...\n", room.Code)
	} else {
		p.ready = true
		fmt.Printf("joined room %s, %s\n", room.Code, scoreLine(p.coord.Scoreboard()))
		p.prompt()
	}

	lines := make(chan string)
	go readLines(lines)
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	for {
		select {
		case line, ok := <-lines:
			if !ok || !p.command(line) {
				return nil
			}
		case ev := <-p.coord.Events():
			if !p.event(ev) {
				return nil
			}
		case <-interrupt:
			return nil
		case <-p.coord.Done():
			return nil
		}
	}
}

func readLines(out chan<- string) {
	defer close(out)
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		out <- strings.TrimSpace(sc.Text())
	}
}

// command handles one input line and reports whether to keep going.
func (p *player) command(line string) bool {
	switch line {
	case "":
		return true
	case "/quit":
		return false
	case "/score":
		fmt.Println(scoreLine(p.coord.Scoreboard()))
		return true
	case "/stats":
		fmt.Println(statsLine(p.stats.Current()))
		return true
	case "/next":
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		err := p.coord.NextPuzzle(ctx)
		cancel()
		if err != nil {
			fmt.Printf("could not start the next puzzle: %v\n", err)
		}
		return true
	}
	if !p.ready {
		fmt.Println("waiting for an opponent...")
		return true
	}
	p.guess(line)
	return true
}

func (p *player) guess(word string) {
	out, err := p.session.Submit(word, p.hard)
	if err != nil {
		if errors.Is(err, game.ErrSessionTerminal) {
			fmt.Println("puzzle finished, type /next for another")
			return
		}
		fmt.Println(err)
		return
	}
	fmt.Printf("%d  %s\n", out.Row, render(out.Guess))

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := p.coord.ReportOutcome(ctx, out); err != nil && !out.Terminal() {
		fmt.Println("progress not sent, the opponent may see it late")
	}
	switch out.Status {
	case game.StatusWon:
		p.stats.Record(ctx, true, out.Row)
		fmt.Printf("solved in %d, waiting for the opponent...\n", out.Row)
	case game.StatusLost:
		p.stats.Record(ctx, false, game.MaxAttempts)
		fmt.Printf("out of guesses, waiting for the opponent...\n")
	default:
		p.prompt()
	}
}

// event handles one coordinator event and reports whether to keep going.
func (p *player) event(ev match.Event) bool {
	switch ev.Kind {
	case match.EventOpponentJoined:
		p.ready = true
		fmt.Printf("opponent joined, %s\n", scoreLine(ev.Score))
		p.prompt()
	case match.EventOpponentProgress:
		fmt.Printf("   opponent: %d guesses, %d green, %d yellow (%s)\n",
			ev.Opponent.GuessCount, ev.Opponent.GreenCount, ev.Opponent.YellowCount, ev.Opponent.Status)
	case match.EventResult:
		fmt.Println(resultLine(ev.Result, p.coord.Self()))
		fmt.Printf("%s\ntype /next for another puzzle or /quit\n", scoreLine(ev.Score))
	case match.EventPuzzleReset:
		if err := p.session.Start(ev.Word); err != nil {
			log.Warn().Err(err).Int("puzzle", ev.Room.Puzzle).Msg("start puzzle")
			return true
		}
		fmt.Printf("puzzle %d\n", ev.Room.Puzzle)
		p.prompt()
	case match.EventRoomClosed:
		fmt.Println("the room was closed")
		return false
	}
	return true
}

func (p *player) prompt() {
	mode := ""
	if p.hard {
		mode = " (hard)"
	}
	fmt.Printf("guess %d/%d%s:\n", p.session.Row()+1, game.MaxAttempts, mode)
}

func (p *player) leave() {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := p.coord.Leave(ctx); err != nil {
		log.Warn().Err(err).Msg("leave room")
	}
}

// render prints correct letters in upper case, present ones in lower case and
// absent ones as dots.
func render(g game.Guess) string {
	var b strings.Builder
	for i, st := range g.States {
		switch st {
		case game.Correct:
			b.WriteString(strings.ToUpper(g.Word[i : i+1]))
		case game.Present:
			b.WriteByte(g.Word[i])
		default:
			b.WriteByte('.')
		}
		b.WriteByte(' ')
	}
	return b.String()
}

func resultLine(r *match.Result, self string) string {
	counts := func(n *int) string {
		if n == nil {
			return "-"
		}
		return fmt.Sprint(*n)
	}
	var head string
	switch {
	case r.Draw:
		head = "draw"
	case r.Won(self):
		head = "you win"
	default:
		head = "you lose"
	}
	return fmt.Sprintf("%s! word was %s (you %s, opponent %s)",
		head, strings.ToUpper(r.Word), counts(r.MyGuessCount), counts(r.OpponentGuessCount))
}

func scoreLine(h match.HeadToHead) string {
	return fmt.Sprintf("score you %d, opponent %d, draws %d", h.WinsA, h.WinsB, h.Draws)
}

func statsLine(s stats.Stats) string {
	return fmt.Sprintf("played %d, win %d%%, streak %d (max %d), distribution %v",
		s.GamesPlayed, s.WinPercent(), s.CurrentStreak, s.MaxStreak, s.Distribution)
}

package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/unixpickle/anygym"
	"github.com/unixpickle/anygym/anyatari"
	"github.com/unixpickle/anygym/anybatch"
	"github.com/unixpickle/anygym/envs"
	"github.com/unixpickle/rip"
)

const (
	DefaultSocketHost = "localhost:5001"
	DefaultHTTPURL    = "http://127.0.0.1:5000"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "anygym",
		Short: "anygym runs reinforcement learning environments with random agents.",
	}

	var benchFlags struct {
		Env     string
		Envs    int
		Workers int
		Steps   int
		Seed    int64
		Verbose bool
	}
	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "Step a batch of built-in environments with random actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			maker, err := builtinMaker(benchFlags.Env)
			if err != nil {
				return err
			}
			makers := make([]anygym.Maker, benchFlags.Envs)
			for i := range makers {
				makers[i] = maker
			}
			return runBatch(makers, &anybatch.Config{
				NumWorkers: benchFlags.Workers,
				Logger:     &anybatch.StandardLogger{Episode: benchFlags.Verbose, Error: true},
			}, benchFlags.Steps, benchFlags.Seed)
		},
	}
	benchCmd.Flags().StringVar(&benchFlags.Env, "env", "cartpole", "environment (cartpole or counter)")
	benchCmd.Flags().IntVar(&benchFlags.Envs, "envs", 8, "number of environments")
	benchCmd.Flags().IntVar(&benchFlags.Workers, "workers", 0, "number of workers (0 for one per env)")
	benchCmd.Flags().IntVar(&benchFlags.Steps, "steps", 1000, "number of batched steps (0 to run until Ctrl+C)")
	benchCmd.Flags().Int64Var(&benchFlags.Seed, "seed", 0, "random seed (0 for unseeded)")
	benchCmd.Flags().BoolVar(&benchFlags.Verbose, "verbose", false, "log every finished episode")

	var atariFlags struct {
		Game    string
		Envs    int
		Steps   int
		Seed    int64
		Verbose bool
	}
	atariCmd := &cobra.Command{
		Use:   "atari",
		Short: "Play preprocessed Atari games on a gym-socket-api server",
		RunE: func(cmd *cobra.Command, args []string) error {
			host := envOr("GYM_SOCKET_HOST", DefaultSocketHost)
			makers := make([]anygym.Maker, atariFlags.Envs)
			for i := range makers {
				makers[i] = func() (anygym.Env, error) {
					remote, err := anyatari.DialRemote(host, atariFlags.Game)
					if err != nil {
						return nil, err
					}
					env, err := anyatari.NewPreprocess(remote, anyatari.DefaultPreprocessConfig())
					if err != nil {
						remote.Close()
						return nil, err
					}
					return env, nil
				}
			}
			return runBatch(makers, &anybatch.Config{
				Logger: &anybatch.StandardLogger{Episode: atariFlags.Verbose, Reset: true,
					Error: true},
			}, atariFlags.Steps, atariFlags.Seed)
		},
	}
	atariCmd.Flags().StringVar(&atariFlags.Game, "game", "PongNoFrameskip-v4", "gym environment name")
	atariCmd.Flags().IntVar(&atariFlags.Envs, "envs", 4, "number of environments")
	atariCmd.Flags().IntVar(&atariFlags.Steps, "steps", 0, "number of batched steps (0 to run until Ctrl+C)")
	atariCmd.Flags().Int64Var(&atariFlags.Seed, "seed", 0, "random seed (0 for unseeded)")
	atariCmd.Flags().BoolVar(&atariFlags.Verbose, "verbose", true, "log every finished episode")

	var httpFlags struct {
		EnvID string
		Envs  int
		Steps int
	}
	httpCmd := &cobra.Command{
		Use:   "http",
		Short: "Run environments on a gym-http-api server",
		RunE: func(cmd *cobra.Command, args []string) error {
			baseURL := envOr("GYM_HTTP_URL", DefaultHTTPURL)
			makers := make([]anygym.Maker, httpFlags.Envs)
			for i := range makers {
				makers[i] = func() (anygym.Env, error) {
					return anygym.MakeGymEnv(baseURL, httpFlags.EnvID)
				}
			}
			return runBatch(makers, &anybatch.Config{
				Logger: &anybatch.StandardLogger{Episode: true, Error: true},
			}, httpFlags.Steps, 0)
		},
	}
	httpCmd.Flags().StringVar(&httpFlags.EnvID, "env", "CartPole-v0", "gym environment ID")
	httpCmd.Flags().IntVar(&httpFlags.Envs, "envs", 2, "number of environments")
	httpCmd.Flags().IntVar(&httpFlags.Steps, "steps", 1000, "number of batched steps (0 to run until Ctrl+C)")

	for _, envFile := range []string{
		".env",
		"../../.env",
	} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	rootCmd.AddCommand(benchCmd, atariCmd, httpCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func builtinMaker(name string) (anygym.Maker, error) {
	switch name {
	case "cartpole":
		return func() (anygym.Env, error) {
			return envs.NewCartPoleV0(), nil
		}, nil
	case "counter":
		return func() (anygym.Env, error) {
			return envs.NewCounter(0, 10, 5), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown environment: %s", name)
	}
}

const drainInterval = 1000

// runBatch steps a batch with uniformly random actions
// until numSteps steps have run or the user hits Ctrl+C.
func runBatch(makers []anygym.Maker, cfg *anybatch.Config, numSteps int,
	seed int64) error {
	env, err := anybatch.New(makers, cfg)
	if err != nil {
		return fmt.Errorf("failed to create environments: %v", err)
	}
	defer env.Close()
	log.Printf("batch %s: %d envs, %d workers", env.ID, env.NumEnvs(), env.NumWorkers())

	if seed != 0 {
		if err := env.Seed(seed); err != nil {
			return err
		}
	}
	if _, err := env.Reset(); err != nil {
		return err
	}

	log.Println("Press Ctrl+C to stop.")
	r := rip.NewRIP()
	defer r.Close()

	actSpace := env.SingleActionSpace()
	if seed != 0 {
		actSpace.Seed(uint64(seed))
	}
	start := time.Now()
	var steps, numEpisodes int
	var totalReward float64
	drain := func() {
		episodes := env.Episodes()
		numEpisodes += len(episodes)
		totalReward += episodes.Mean() * float64(len(episodes))
	}
	for !r.Done() && (numSteps == 0 || steps < numSteps) {
		actions := make([]interface{}, env.NumEnvs())
		for i := range actions {
			actions[i] = actSpace.Sample()
		}
		if _, _, _, _, err := env.Step(actions); err != nil {
			return err
		}
		steps++
		if steps%drainInterval == 0 {
			drain()
		}
	}
	drain()

	elapsed := time.Since(start)
	var meanReward float64
	if numEpisodes > 0 {
		meanReward = totalReward / float64(numEpisodes)
	}
	log.Printf("batch %s: steps=%d env_steps/sec=%.1f episodes=%d mean_reward=%f",
		env.ID, steps, float64(steps*env.NumEnvs())/elapsed.Seconds(), numEpisodes,
		meanReward)
	return nil
}

func envOr(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	crawlFile    string
	crawlKeyword string
	crawlProcess bool
)

func init() {
	crawlCmd.Flags().StringVarP(&crawlFile, "file", "f", "", "read product URLs from a file, one per line")
	crawlCmd.Flags().StringVarP(&crawlKeyword, "keyword", "k", "", "sourcing keyword recorded with the captures")
	crawlCmd.Flags().BoolVarP(&crawlProcess, "process", "p", false, "refine each capture right after it is stored")
	rootCmd.AddCommand(crawlCmd)
}

var crawlCmd = &cobra.Command{
	Use:   "crawl [url...] [--file urls.txt]",
	Short: "Visits product pages and stores their captures.",
	RunE: func(cmd *cobra.Command, args []string) error {
		urls := args
		if crawlFile != "" {
			fromFile, err := readLines(crawlFile)
			if err != nil {
				return err
			}
			urls = append(urls, fromFile...)
		}
		if len(urls) == 0 {
			return fmt.Errorf("no urls given")
		}

		r, _, closeAll, err := startCrawler(cmd)
		if err != nil {
			return err
		}
		defer closeAll()

		st, err := r.Crawl(cmd.Context(), urls, crawlKeyword, crawlProcess)
		fmt.Printf("captured %d, timed out %d, failed %d of %d\n", st.OK, st.TimedOut, st.Failed, len(urls))
		return err
	},
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			out = append(out, line)
		}
	}
	return out, sc.Err()
}

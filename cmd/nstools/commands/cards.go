package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"nstools/cmd/nstools/globals"
	"nstools/lib/cards"
	"nstools/lib/dump"
	"nstools/lib/nsapi"
	"nstools/lib/serviceutil"
	"nstools/lib/sheet"

	"github.com/spf13/cobra"
)

var (
	cardsSortFiles       *[]string
	cardsSortRegions     *[]string
	cardsSortRarities    *string
	cardsSortCollect     *bool
	cardsSortOutput      *string
	cardsRarityOutput    *string
	cardsFarmersPrevious *string
	cardsFarmersOutput   *string
	cardsTradesMembers   *string
	cardsTradesList      *string
	cardsTradesRarity    *string
	cardsTradesSince     *int64
	cardsTradesOutput    *string
)

func init() {
	cardsSortFiles = cardsSortCmd.Flags().StringSlice("file", nil, "Files or sheet urls listing a nation in the first column.")
	cardsSortRegions = cardsSortCmd.Flags().StringSlice("region", nil, "Include every resident of these regions.")
	cardsSortRarities = cardsSortCmd.Flags().String("rarities", "", "Comma separated rarities to include, all when empty.")
	cardsSortCollect = cardsSortCmd.Flags().Bool("collect", false, "Write one row per card with a copies column instead of one row per copy.")
	cardsSortOutput = cardsSortCmd.Flags().StringP("output", "o", "cards.csv", "Output csv file, - for stdout.")
	cardsRarityOutput = cardsRarityCmd.Flags().StringP("output", "o", "", "Output file, <rarity>Cards.json by default.")
	cardsFarmersPrevious = cardsFarmersCmd.Flags().String("previous", "", "A previous output, nations listed in it are left out.")
	cardsFarmersOutput = cardsFarmersCmd.Flags().StringP("output", "o", "", "Output file, stdout by default.")

	cardsTradesMembers = cardsTradesCmd.Flags().String("members", "", "File or sheet url listing a member nation in the first column.")
	cardsTradesList = cardsTradesCmd.Flags().String("list", "", "Rarity list written by cards rarity, built from the card dumps when empty.")
	cardsTradesRarity = cardsTradesCmd.Flags().String("rarity", "legendary", "Rarity to audit when no list is given.")
	cardsTradesSince = cardsTradesCmd.Flags().Int64("since", 0, "Unix timestamp to audit from, the start of the previous month by default.")
	cardsTradesOutput = cardsTradesCmd.Flags().StringP("output", "o", "", "Output file, stdout by default.")
	cardsTradesCmd.MarkFlagRequired("members")

	cardsCmd.AddCommand(cardsSortCmd)
	cardsCmd.AddCommand(cardsTradesCmd)
	cardsCmd.AddCommand(cardsRarityCmd)
	cardsCmd.AddCommand(cardsFarmersCmd)
	rootCmd.AddCommand(cardsCmd)
}

// collectNations lists the nations named on the command line, then those
// in the first column of each file, then the residents of each region.
// Repeats keep their first position.
func collectNations(ctx context.Context, client *nsapi.Client, sheets *sheet.Reader, args, files, regions []string) ([]string, error) {
	var nations nsapi.NameList
	nations.Add(args...)
	for _, location := range files {
		rows, err := sheets.Rows(ctx, location)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", location, err)
		}
		for _, row := range rows {
			nations.Add(sheet.Field(row, 0))
		}
	}
	for _, region := range regions {
		residents, err := client.Region(region).Nations(ctx)
		if err != nil {
			return nil, fmt.Errorf("residents of %s: %w", region, err)
		}
		nations.Add(residents...)
	}
	return nations.Names(), nil
}

var cardsCmd = &cobra.Command{
	Use:   "cards",
	Short: "Trading card utilities.",
}

var cardsSortCmd = &cobra.Command{
	Use:   "sort [nation...]",
	Short: "Exports the decks of nations as csv, sorted by rarity.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		client := apiClient(cmd)

		rarities, err := cards.ParseRarities(*cardsSortRarities)
		if err != nil {
			serviceutil.Fatal("invalid rarities", err)
		}

		nations, err := collectNations(ctx, client, globals.Get(ctx).Sheets(), args, *cardsSortFiles, *cardsSortRegions)
		if err != nil {
			serviceutil.Fatal("failed to collect nations", err)
		}
		if len(nations) == 0 {
			serviceutil.Fatal("no nations given", errors.New("pass nations, --file or --region"))
		}

		holdings, err := cards.Sort(ctx, client, nations)
		if err != nil {
			serviceutil.Fatal("failed to read decks", err)
		}

		names := cards.WantedNames(holdings)
		manager := dumpManager(cmd)
		for _, season := range dump.Seasons {
			reader, err := manager.Cards(ctx, season, dump.DumpOptions{})
			if err != nil {
				serviceutil.Fatal("failed to open card list", err)
			}
			err = cards.Names(names, reader, season)
			reader.Close()
			if err != nil {
				serviceutil.Fatal("failed to read card list", err)
			}
		}

		out := openOutput(*cardsSortOutput)
		err = cards.WriteCSV(out, holdings, names, cards.CSVOptions{
			Rarities: rarities,
			Collect:  *cardsSortCollect,
		})
		if err != nil {
			serviceutil.Fatal("failed to write csv", err)
		}
		closeOutput(out)
	},
}

var cardsRarityCmd = &cobra.Command{
	Use:   "rarity <rarity>",
	Short: "Lists every card of a rarity across all seasons as json.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rarities, err := cards.ParseRarities(args[0])
		if err != nil || len(rarities) != 1 {
			serviceutil.Fatal("invalid rarity", err)
		}
		rarity := rarities[0]

		found := rarityCards(cmd, "", rarity)

		path := *cardsRarityOutput
		if path == "" {
			path = cards.RarityListName(rarity)
		}
		out := openOutput(path)
		err = cards.WriteRarityList(out, found)
		if err != nil {
			serviceutil.Fatal("failed to write rarity list", err)
		}
		closeOutput(out)
	},
}

var cardsFarmersCmd = &cobra.Command{
	Use:   "farmers <region>",
	Short: "Lists the residents of a region with any card activity.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		previous := nsapi.NewNameSet()
		if *cardsFarmersPrevious != "" {
			f, err := os.Open(*cardsFarmersPrevious)
			if err != nil && !os.IsNotExist(err) {
				serviceutil.Fatal("failed to open previous farmers", err)
			}
			if err == nil {
				previous, err = cards.ParseFarmers(f)
				f.Close()
				if err != nil {
					serviceutil.Fatal("failed to read previous farmers", err)
				}
			}
		}

		farmers, err := cards.Farmers(cmd.Context(), apiClient(cmd), args[0], previous)
		if err != nil {
			serviceutil.Fatal("failed to find farmers", err)
		}

		out := openOutput(*cardsFarmersOutput)
		err = cards.WriteFarmers(out, farmers)
		if err != nil {
			serviceutil.Fatal("failed to write farmers", err)
		}
		closeOutput(out)
	},
}


// rarityCards reads a rarity list from a file, or collects it from the
// card dumps of every season.
func rarityCards(cmd *cobra.Command, path, rarity string) []cards.RarityCard {
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			serviceutil.Fatal("failed to open rarity list", err)
		}
		defer f.Close()
		list, err := cards.ParseRarityList(f)
		if err != nil {
			serviceutil.Fatal("failed to read rarity list", err)
		}
		return list
	}

	manager := dumpManager(cmd)
	var found []cards.RarityCard
	for _, season := range dump.Seasons {
		reader, err := manager.Cards(cmd.Context(), season, dump.DumpOptions{})
		if err != nil {
			serviceutil.Fatal("failed to open card list", err)
		}
		found, err = cards.FindRarity(found, reader, season, rarity)
		reader.Close()
		if err != nil {
			serviceutil.Fatal("failed to read card list", err)
		}
	}
	return found
}

var cardsTradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "Lists the trades of cards of a rarity where a member bought or sold.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		rows, err := globals.Get(ctx).Sheets().Rows(ctx, *cardsTradesMembers)
		if err != nil {
			serviceutil.Fatal("failed to read members", err)
		}
		members := nsapi.NewNameSet()
		for _, row := range rows {
			members.Add(sheet.Field(row, 0))
		}

		since := cards.PreviousMonth(time.Now())
		if *cardsTradesSince > 0 {
			since = time.Unix(*cardsTradesSince, 0)
		}

		client := apiClient(cmd)
		list := rarityCards(cmd, *cardsTradesList, *cardsTradesRarity)
		for i, card := range list {
			if card.Name != "" {
				continue
			}
			// lists written by hand may leave names out
			id, _ := strconv.Atoi(card.CardID)
			season, _ := strconv.Atoi(card.Season)
			info, err := client.Card(id, season).Info(ctx)
			if err != nil {
				serviceutil.Fatal("failed to get card info", err)
			}
			list[i].Name = info.Name
		}

		trades, err := cards.AuditTrades(ctx, client, list, members, since)
		if err != nil {
			serviceutil.Fatal("failed to audit trades", err)
		}

		out := openOutput(*cardsTradesOutput)
		err = cards.WriteTradeAudit(out, trades)
		if err != nil {
			serviceutil.Fatal("failed to write trades", err)
		}
		closeOutput(out)
	},
}

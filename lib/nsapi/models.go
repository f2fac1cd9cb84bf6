package nsapi

import (
	"strconv"
	"strings"
)

type Freedoms[T any] struct {
	CivilRights      T
	Economy          T
	PoliticalFreedom T
}

type DeathCause struct {
	Cause      string
	Percentage float64
}

// NationStandard is the data of the standard nation shard set, which is
// also the shape of a NATION record in the nations dump.
type NationStandard struct {
	Name               string
	Classification     string
	FullName           string
	Motto              string
	GovernmentCategory string
	WAStatus           string
	Endorsements       []string
	IssuesAnswered     int
	Freedom            Freedoms[string]
	Region             string
	Population         int64
	Tax                float64
	Animal             string
	Currency           string
	Demonym            string
	Demonym2           string
	Demonym2Plural     string
	Flag               string
	MajorIndustry      string
	GovernmentPriority string
	Government         map[string]float64
	Founded            string
	FirstLogin         int64
	LastLogin          int64
	Influence          string
	FreedomScores      Freedoms[int]
	PublicSector       float64
	Deaths             []DeathCause
	Leader             string
	Capital            string
	Religion           string
	Factbooks          int
	Dispatches         int
	DBID               int64
}

// IsWAMember reports whether the WA status is a membership status
// ("WA Member" or "WA Delegate").
func (n NationStandard) IsWAMember() bool {
	return IsWAStatus(n.WAStatus)
}

func IsWAStatus(status string) bool {
	return strings.HasPrefix(status, "WA")
}

// ParseNationStandard converts a NATION node.
func ParseNationStandard(n Node) (NationStandard, error) {
	f := newFields(n)

	name := f.str("NAME")
	if name == "" {
		// API responses carry the name in the id attribute
		name = n.AttrOr("id", "")
	}

	freedom := f.child("FREEDOM")
	scores := newFields(f.child("FREEDOMSCORES"))
	scores.record = "FREEDOMSCORES"

	government := map[string]float64{}
	for _, c := range f.child("GOVT").Children {
		v, err := strconv.ParseFloat(strings.TrimSpace(c.Text), 64)
		if err != nil {
			f.fail("GOVT."+c.Tag(), c.Text, err)
			continue
		}
		government[c.Tag()] = v
	}

	var deaths []DeathCause
	for _, c := range f.child("DEATHS").All("CAUSE") {
		v, err := strconv.ParseFloat(strings.TrimSpace(c.Text), 64)
		if err != nil {
			f.fail("DEATHS.CAUSE", c.Text, err)
			continue
		}
		deaths = append(deaths, DeathCause{Cause: c.AttrOr("type", ""), Percentage: v})
	}

	out := NationStandard{
		Name:               name,
		Classification:     f.str("TYPE"),
		FullName:           f.str("FULLNAME"),
		Motto:              f.str("MOTTO"),
		GovernmentCategory: f.str("CATEGORY"),
		WAStatus:           f.str("UNSTATUS"),
		Endorsements:       SplitList(f.str("ENDORSEMENTS"), ","),
		IssuesAnswered:     f.int("ISSUES_ANSWERED"),
		Freedom: Freedoms[string]{
			CivilRights:      freedom.Simple("CIVILRIGHTS"),
			Economy:          freedom.Simple("ECONOMY"),
			PoliticalFreedom: freedom.Simple("POLITICALFREEDOM"),
		},
		Region:             f.str("REGION"),
		Population:         f.int64("POPULATION"),
		Tax:                f.float("TAX"),
		Animal:             f.str("ANIMAL"),
		Currency:           f.str("CURRENCY"),
		Demonym:            f.str("DEMONYM"),
		Demonym2:           f.str("DEMONYM2"),
		Demonym2Plural:     f.str("DEMONYM2PLURAL"),
		Flag:               f.str("FLAG"),
		MajorIndustry:      f.str("MAJORINDUSTRY"),
		GovernmentPriority: f.str("GOVTPRIORITY"),
		Government:         government,
		Founded:            f.str("FOUNDED"),
		FirstLogin:         f.int64("FIRSTLOGIN"),
		LastLogin:          f.int64("LASTLOGIN"),
		Influence:          f.str("INFLUENCE"),
		FreedomScores: Freedoms[int]{
			CivilRights:      scores.int("CIVILRIGHTS"),
			Economy:          scores.int("ECONOMY"),
			PoliticalFreedom: scores.int("POLITICALFREEDOM"),
		},
		PublicSector: f.float("PUBLICSECTOR"),
		Deaths:       deaths,
		Leader:       f.str("LEADER"),
		Capital:      f.str("CAPITAL"),
		Religion:     f.str("RELIGION"),
		Factbooks:    f.int("FACTBOOKS"),
		Dispatches:   f.int("DISPATCHES"),
		DBID:         f.int64("DBID"),
	}
	if f.err != nil {
		return NationStandard{}, f.err
	}
	if scores.err != nil {
		return NationStandard{}, scores.err
	}
	return out, nil
}

type Officer struct {
	Nation    string
	Office    string
	Authority string
	Time      int64
	By        string
	Order     int
}

type Embassy struct {
	Region string
	// one of "open" (the default), "pending", "invited", "closing", ...
	Status string
}

// RegionStandard is the shape of a REGION record in the regions dump.
type RegionStandard struct {
	Name          string
	Factbook      string
	NumNations    int
	Nations       []string
	Delegate      string
	DelegateVotes int
	DelegateAuth  string
	Founder       string
	FounderAuth   string
	Officers      []Officer
	Power         string
	Flag          string
	Embassies     []Embassy
	LastUpdate    int64
}

func ParseRegionStandard(n Node) (RegionStandard, error) {
	f := newFields(n)

	name := f.str("NAME")
	if name == "" {
		name = n.AttrOr("id", "")
	}

	var officers []Officer
	for _, c := range f.child("OFFICERS").All("OFFICER") {
		of := newFields(c)
		officer := Officer{
			Nation:    of.str("NATION"),
			Office:    of.str("OFFICE"),
			Authority: of.str("AUTHORITY"),
			Time:      of.int64("TIME"),
			By:        of.str("BY"),
			Order:     of.int("ORDER"),
		}
		if of.err != nil {
			return RegionStandard{}, of.err
		}
		officers = append(officers, officer)
	}

	var embassies []Embassy
	for _, c := range f.child("EMBASSIES").All("EMBASSY") {
		embassies = append(embassies, Embassy{
			Region: c.Text,
			Status: c.AttrOr("type", "open"),
		})
	}

	out := RegionStandard{
		Name:          name,
		Factbook:      f.str("FACTBOOK"),
		NumNations:    f.int("NUMNATIONS"),
		Nations:       SplitList(f.str("NATIONS"), ":"),
		Delegate:      f.str("DELEGATE"),
		DelegateVotes: f.int("DELEGATEVOTES"),
		DelegateAuth:  f.str("DELEGATEAUTH"),
		Founder:       f.str("FOUNDER"),
		FounderAuth:   f.str("FOUNDERAUTH"),
		Officers:      officers,
		Power:         f.str("POWER"),
		Flag:          f.str("FLAG"),
		Embassies:     embassies,
		LastUpdate:    f.int64("LASTUPDATE"),
	}
	if f.err != nil {
		return RegionStandard{}, f.err
	}
	return out, nil
}

// CardStandard is the shape of a CARD record in the card list dumps.
type CardStandard struct {
	ID             int
	Name           string
	Rarity         string
	Classification string
	Motto          string
	Region         string
	Government     string
	Flag           string
	Description    string
	Badges         []string
	Trophies       map[string]int
}

func ParseCardStandard(n Node) (CardStandard, error) {
	f := newFields(n)

	trophies := map[string]int{}
	for _, c := range f.child("TROPHIES").Children {
		v, err := strconv.Atoi(strings.TrimSpace(c.Text))
		if err != nil {
			f.fail("TROPHIES."+c.Tag(), c.Text, err)
			continue
		}
		trophies[c.AttrOr("type", "")] = v
	}

	out := CardStandard{
		ID:             f.int("ID"),
		Name:           f.str("NAME"),
		Rarity:         f.str("CARDCATEGORY"),
		Classification: f.str("TYPE"),
		Motto:          f.str("MOTTO"),
		Region:         f.str("REGION"),
		Government:     f.str("CATEGORY"),
		Flag:           f.str("FLAG"),
		Description:    f.str("DESCRIPTION"),
		Badges:         f.child("BADGES").Texts(),
		Trophies:       trophies,
	}
	if f.err != nil {
		return CardStandard{}, f.err
	}
	return out, nil
}

// CardIdentifier identifies a trading card. It is comparable and can be
// used as a map key.
type CardIdentifier struct {
	ID     int
	Rarity string
	Season int
}

// ParseCardIdentifier converts a CARD node of a deck. Missing values are
// left as zero values.
func ParseCardIdentifier(n Node) (CardIdentifier, error) {
	f := newFields(n)
	out := CardIdentifier{
		ID:     f.int("CARDID"),
		Rarity: f.str("CATEGORY"),
		Season: f.int("SEASON"),
	}
	if f.err != nil {
		return CardIdentifier{}, f.err
	}
	return out, nil
}

type CardInfo struct {
	ID             int
	Rarity         string
	Season         int
	Flag           string
	Government     string
	MarketValue    float64
	Name           string
	Region         string
	Slogan         string
	Classification string
}

func (c CardInfo) Identifier() CardIdentifier {
	return CardIdentifier{ID: c.ID, Rarity: c.Rarity, Season: c.Season}
}

func ParseCardInfo(n Node) (CardInfo, error) {
	f := newFields(n)
	out := CardInfo{
		ID:             f.int("CARDID"),
		Rarity:         f.str("CATEGORY"),
		Season:         f.int("SEASON"),
		Flag:           f.str("FLAG"),
		Government:     f.str("GOVT"),
		MarketValue:    f.float("MARKET_VALUE"),
		Name:           f.str("NAME"),
		Region:         f.str("REGION"),
		Slogan:         f.str("SLOGAN"),
		Classification: f.str("TYPE"),
	}
	if f.err != nil {
		return CardInfo{}, f.err
	}
	return out, nil
}

type Trade struct {
	Buyer     string
	Seller    string
	Price     float64
	Timestamp int64
}

func ParseTrade(n Node) (Trade, error) {
	f := newFields(n)
	out := Trade{
		Buyer:     f.str("BUYER"),
		Seller:    f.str("SELLER"),
		Price:     f.float("PRICE"),
		Timestamp: f.int64("TIMESTAMP"),
	}
	if f.err != nil {
		return Trade{}, f.err
	}
	return out, nil
}

type DeckInfo struct {
	Bank           float64
	DeckCapacity   int
	DeckValue      float64
	ID             int64
	LastPackOpened *int64
	LastValued     *int64
	Name           string
	NumCards       int
	Rank           int
	RegionRank     int
}

// Active reports whether the deck shows any card activity.
func (d DeckInfo) Active() bool {
	return d.NumCards > 0 || d.Bank > 0 || d.LastValued != nil || d.LastPackOpened != nil
}

func ParseDeckInfo(n Node) (DeckInfo, error) {
	f := newFields(n)
	out := DeckInfo{
		Bank:           f.float("BANK"),
		DeckCapacity:   f.int("DECK_CAPACITY_RAW"),
		DeckValue:      f.float("DECK_VALUE"),
		ID:             f.int64("ID"),
		LastPackOpened: f.optInt64("LAST_PACK_OPENED"),
		LastValued:     f.optInt64("LAST_VALUED"),
		Name:           f.str("NAME"),
		NumCards:       f.int("NUM_CARDS"),
		Rank:           f.int("RANK"),
		RegionRank:     f.int("REGION_RANK"),
	}
	if f.err != nil {
		return DeckInfo{}, f.err
	}
	return out, nil
}

type Happening struct {
	ID        int64
	Timestamp *int64
	Text      string
}

func ParseHappening(n Node) (Happening, error) {
	f := newFields(n)
	id, err := strconv.ParseInt(n.AttrOr("id", "0"), 10, 64)
	if err != nil {
		return Happening{}, &ParseError{Record: "EVENT", Field: "@id", Value: n.AttrOr("id", ""), Err: err}
	}
	out := Happening{
		ID:        id,
		Timestamp: f.optInt64("TIMESTAMP"),
		Text:      f.str("TEXT"),
	}
	if f.err != nil {
		return Happening{}, f.err
	}
	return out, nil
}

type Issue struct {
	ID      int
	Title   string
	Text    string
	Author  string
	Editors []string
	Pic1    string
	Pic2    string
	// option ids in document order
	Options     []int
	OptionTexts map[int]string
}

func ParseIssue(n Node) (Issue, error) {
	f := newFields(n)
	out := Issue{
		ID:          f.attrInt("id"),
		Title:       f.str("TITLE"),
		Text:        f.str("TEXT"),
		Author:      f.str("AUTHOR"),
		Pic1:        f.str("PIC1"),
		Pic2:        f.str("PIC2"),
		OptionTexts: map[int]string{},
	}
	if editors := f.str("EDITOR"); editors != "" {
		out.Editors = strings.Split(editors, ", ")
	}
	for _, c := range n.All("OPTION") {
		of := newFields(c)
		id := of.attrInt("id")
		if of.err != nil {
			return Issue{}, of.err
		}
		out.Options = append(out.Options, id)
		out.OptionTexts[id] = c.Text
	}
	if f.err != nil {
		return Issue{}, f.err
	}
	return out, nil
}

// IssueResult is the outcome of answering an issue.
type IssueResult struct {
	Issue  int
	Option int
	OK     bool
	Desc   string
	Error  string
}

func ParseIssueResult(n Node) (IssueResult, error) {
	f := newFields(n)
	out := IssueResult{
		Issue:  f.attrInt("id"),
		Option: f.attrInt("choice"),
		OK:     strings.TrimSpace(f.str("OK")) == "1",
		Desc:   f.str("DESC"),
		Error:  f.str("ERROR"),
	}
	if f.err != nil {
		return IssueResult{}, f.err
	}
	return out, nil
}

// Dossier holds the nations and regions a nation keeps on its dossier.
type Dossier struct {
	Nations NameSet
	Regions NameSet
}

func ParseDossier(dossier, rdossier Node) Dossier {
	return Dossier{
		Nations: NewNameSet(dossier.Texts()...),
		Regions: NewNameSet(rdossier.Texts()...),
	}
}

// Message is a post on a regional message board.
type Message struct {
	ID        int64
	Timestamp int64
	Nation    string
	Status    int
	Likes     int
	Text      string
}

func ParseMessage(n Node) (Message, error) {
	f := newFields(n)
	id, err := strconv.ParseInt(n.AttrOr("id", "0"), 10, 64)
	if err != nil {
		return Message{}, &ParseError{Record: "POST", Field: "@id", Value: n.AttrOr("id", ""), Err: err}
	}
	out := Message{
		ID:        id,
		Timestamp: f.int64("TIMESTAMP"),
		Nation:    f.str("NATION"),
		Status:    f.int("STATUS"),
		Likes:     f.int("LIKES"),
		Text:      f.str("MESSAGE"),
	}
	if f.err != nil {
		return Message{}, f.err
	}
	return out, nil
}

// parseAll converts every node, failing on the first error.
func parseAll[T any](nodes []Node, parse func(Node) (T, error)) ([]T, error) {
	out := make([]T, 0, len(nodes))
	for _, n := range nodes {
		v, err := parse(n)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/homemade/xmclone/clone"
	"github.com/spf13/cobra"
)

var (
	cloneEventID            int64
	cloneTargetURL          string
	cloneIncludeConfDetails bool
	cloneIsDynamicBridge    bool
	cloneRecipients         []string
	clonePropertyMapping    []string
	cloneProperties         []string
)

func newCloneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clone",
		Short: "Clone a single event onto another form",
		Example: `  xmclone clone -d acme --event-id 42 --target-url https://acme.xmatters.com/api/integration/1/functions/abc/triggers
  xmclone clone -d acme --event-id 42 --target-url /api/integration/1/functions/abc/triggers \
    --map subject=Description --recipient "Executives:GROUP" --set "Other Prop=value"`,
		RunE: runClone,
	}

	cmd.Flags().Int64Var(&cloneEventID, "event-id", 0, "identifier of the source event")
	cmd.Flags().StringVar(&cloneTargetURL, "target-url", "", "trigger URL of the form to clone onto")
	cmd.Flags().BoolVar(&cloneIncludeConfDetails, "include-conf", false, "copy the conference bridge details")
	cmd.Flags().BoolVar(&cloneIsDynamicBridge, "dynamic-bridge", false, "carry over the bridge number of an EXTERNAL bridge")
	cmd.Flags().StringArrayVar(&cloneRecipients, "recipient", nil, "recipient as id:recipientType (repeatable)")
	cmd.Flags().StringArrayVar(&clonePropertyMapping, "map", nil, "property mapping as source=target (repeatable)")
	cmd.Flags().StringArrayVar(&cloneProperties, "set", nil, "additional property as name=value (repeatable)")

	return cmd
}

func runClone(cmd *cobra.Command, args []string) error {
	options, err := cloneOptionsFromFlags()
	if err != nil {
		return err
	}
	config, err := loadConfig()
	if err != nil {
		return err
	}

	response, err := clone.NewCloner(config.API).CloneEvent(cloneEventID, cloneTargetURL, options, cmd.Context())
	if err != nil {
		return err
	}

	b, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	if !clone.IsValidStatusCode(response.StatusCode) {
		return fmt.Errorf("trigger returned status %d", response.StatusCode)
	}
	return nil
}

func cloneOptionsFromFlags() (clone.CloneOptions, error) {
	options := clone.CloneOptions{
		IncludeConfDetails: cloneIncludeConfDetails,
		IsDynamicBridge:    cloneIsDynamicBridge,
	}
	for _, r := range cloneRecipients {
		id, recipientType, _ := strings.Cut(r, ":")
		if id == "" {
			return options, fmt.Errorf("invalid recipient %q", r)
		}
		options.Recipients = append(options.Recipients, clone.Recipient{ID: id, RecipientType: recipientType})
	}
	for _, m := range clonePropertyMapping {
		source, target, found := strings.Cut(m, "=")
		if !found || source == "" || target == "" {
			return options, fmt.Errorf("invalid property mapping %q, expected source=target", m)
		}
		options.PropertyMapping = append(options.PropertyMapping, clone.PropertyMatcher{
			SourcePropertyName: source,
			TargetPropertyName: target,
		})
	}
	for _, p := range cloneProperties {
		name, value, found := strings.Cut(p, "=")
		if !found || name == "" {
			return options, fmt.Errorf("invalid property %q, expected name=value", p)
		}
		if options.AdditionalProperties == nil {
			options.AdditionalProperties = make(map[string]interface{})
		}
		options.AdditionalProperties[name] = value
	}
	return options, nil
}

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/catalogsync/catalogsync/internal/schema"
	"github.com/catalogsync/catalogsync/internal/urn"
)

const listDomainEntitiesQuery = `query listDomainEntities($domain: String!, $count: Int!, $start: Int!) {
  listDomains(input: {query: $domain, start: 0, count: $count}) {
    domains {
      urn
      type
      entities(input: {start: $start, count: $count}) {
        total
        searchResults {
          entity {
            type
            urn
          }
        }
      }
    }
  }
}`

const fieldProfilesQuery = `query datasetFieldProfiles($urn: String!) {
  dataset(urn: $urn) {
    datasetProfiles(limit: 1) {
      fieldProfiles {
        fieldPath
        min
        max
        sampleValues
      }
    }
  }
}`

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// graphql runs a query and decodes its data member into out.
func (c *Client) graphql(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error {
	body, err := c.do(ctx, "POST", "/api/graphql", graphQLRequest{Query: query, Variables: vars}, nil)
	if err != nil {
		return err
	}

	var resp graphQLResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("decoding graphql response: %w", err)
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, len(resp.Errors))
		for i, e := range resp.Errors {
			msgs[i] = e.Message
		}
		return fmt.Errorf("graphql errors: %s", strings.Join(msgs, "; "))
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return fmt.Errorf("graphql response has no data")
	}
	return json.Unmarshal(resp.Data, out)
}

type listDomainsData struct {
	ListDomains struct {
		Domains []struct {
			URN      string `json:"urn"`
			Entities struct {
				Total         int `json:"total"`
				SearchResults []struct {
					Entity struct {
						Type string `json:"type"`
						URN  string `json:"urn"`
					} `json:"entity"`
				} `json:"searchResults"`
			} `json:"entities"`
		} `json:"domains"`
	} `json:"listDomains"`
}

// ListDatasetURNs returns the URNs of every entity in the domain, paging
// through the domain's entity list. Only the domain whose URN matches
// exactly is used.
func (c *Client) ListDatasetURNs(ctx context.Context, domain string) ([]string, error) {
	domainURN := urn.DomainURN(domain)
	var urns []string

	for start := 0; ; start += c.pageSize {
		var data listDomainsData
		vars := map[string]interface{}{"domain": domain, "count": c.pageSize, "start": start}
		if err := c.graphql(ctx, listDomainEntitiesQuery, vars, &data); err != nil {
			return nil, queryError(PhaseList, "listDomains", domainURN, err)
		}

		found := false
		total := 0
		for _, d := range data.ListDomains.Domains {
			if d.URN != domainURN {
				continue
			}
			found = true
			total = d.Entities.Total
			for _, r := range d.Entities.SearchResults {
				urns = append(urns, r.Entity.URN)
			}
		}
		if !found {
			return nil, queryError(PhaseList, "listDomains", domainURN, fmt.Errorf("domain %s not found", domainURN))
		}

		if start+c.pageSize >= total {
			break
		}
	}

	c.logger.Info("fetched dataset urns", "domain", domain, "count", len(urns))
	return urns, nil
}

type fieldProfilesData struct {
	Dataset *struct {
		DatasetProfiles []struct {
			FieldProfiles []schema.FieldProfile `json:"fieldProfiles"`
		} `json:"datasetProfiles"`
	} `json:"dataset"`
}

// FetchFieldProfiles returns the latest column statistics stored for a
// dataset. A dataset without profiles yields an empty result.
func (c *Client) FetchFieldProfiles(ctx context.Context, datasetURN string) ([]schema.FieldProfile, error) {
	var data fieldProfilesData
	if err := c.graphql(ctx, fieldProfilesQuery, map[string]interface{}{"urn": datasetURN}, &data); err != nil {
		return nil, queryError(PhaseFetch, "datasetProfiles", datasetURN, err)
	}
	if data.Dataset == nil {
		return nil, queryError(PhaseFetch, "datasetProfiles", datasetURN, fmt.Errorf("dataset not found"))
	}
	if len(data.Dataset.DatasetProfiles) == 0 {
		return nil, nil
	}
	return data.Dataset.DatasetProfiles[0].FieldProfiles, nil
}

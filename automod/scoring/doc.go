// Weighted aggregation of classifier output in to a single composite score.
//
// Classifiers (text toxicity, image nudity detection) emit a score per label. Rules combine those with fixed weight tables: positive weights amplify labels which indicate a problem, negative weights suppress the overall score when "benign" labels (eg, "neutral" text, or covered body regions) are present.
package scoring
